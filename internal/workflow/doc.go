// Package workflow runs generation jobs: claiming the oldest scheduled job,
// collecting content from the user's sources, and replaying the stored
// session to create a notebook and generate audio. Jobs end in complete or
// failed; failures are terminal and require a new job.
package workflow

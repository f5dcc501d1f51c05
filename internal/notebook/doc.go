// Package notebook drives the third-party notebook service with a captured
// browser session: creating a notebook from collected content and starting
// audio generation. The production client replays the session headlessly
// with playwright; the Client interface keeps the orchestrator testable
// without a browser.
package notebook

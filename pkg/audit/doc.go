// Package audit records security relevant actions.
//
// A Recorder builds Events from the request context (username, request id,
// client ip, user agent) and hands them to a Storage. Recording never fails
// the caller: storage errors are logged at WARN and dropped. AsyncWriter
// batches events in a background worker, and RunRetention deletes rows older
// than the retention period on a fixed interval.
package audit

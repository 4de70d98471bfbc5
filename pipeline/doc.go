// Package pipeline executes authenticated requests against the SensorCloud
// REST API.
//
// A Pipeline owns one device's session. Requests are built from a device
// relative path and run through a fixed sequence:
//
//  1. Authenticate lazily if no session is installed.
//  2. Send the request with auth_token, version and User-Agent attached.
//  3. On 401, if Config.Reauthenticate is set and this call has not
//     reauthenticated yet, authenticate once and replay the request.
//  4. Hand the response to the request's interceptors in order. An
//     interceptor may let the response Continue to the next one, Stop the
//     chain, or ask for a Replay of the whole request.
//
// Each interceptor gets at most one replay per call. Once it has used it, the
// interceptor is skipped for the rest of the call, so a failure that repeats
// after its recovery action surfaces to the caller instead of looping.
//
// Responses are returned whatever their status; callers turn unexpected
// statuses into errors with Response.Expect.
//
// # Thread Safety
//
// The installed session is swapped atomically, but a Pipeline is meant to be
// driven by one caller at a time: concurrent calls may each reauthenticate.
package pipeline

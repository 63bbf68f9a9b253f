// Package http provides HTTP handlers and middleware for the event coordination API.
//
// The acting identity arrives in the `X-User-ID` header, resolved by the WithActor
// middleware. Requests without the header proceed anonymously; each handler decides
// whether anonymous access is acceptable (public events are readable by anyone).
//
// The router exposes the following endpoints:
//   - GET /events, POST /events: list visible events and create new ones, exchanging
//     the `eventDTO` payload defined in event_handler.go. Event responses carry a
//     `version` for optimistic concurrency and may include advisory warnings such as
//     a confirmed time overlapping a blackout period.
//   - GET /events/{id}, PUT /events/{id}, PATCH /events/{id}, DELETE /events/{id}:
//     read, patch, and delete a single event. PUT and PATCH both accept the partial
//     `eventPatchRequest`; absent fields are left untouched.
//   - PUT /events/{id}/membership: self-service update of the caller's own
//     membership entry (availability and padding).
//   - POST /events/{id}/blackouts, DELETE /events/{id}/blackouts: add or carve out a
//     blackout period, exchanging the `rangeDTO` payload.
//   - GET /users, POST /users, GET /users/{id}, PUT /users/{id}, DELETE /users/{id}:
//     identity directory endpoints exchanging the `userDTO` payload defined in
//     user_handler.go. Users may only modify their own entry.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http

/*
Package proxy implements the normalized vehicle REST API.

	GET  /vehicles/{id}          {"vin", "color", "doorCount", "driveTrain"}
	GET  /vehicles/{id}/doors    {"<location>": <locked>, ...}
	GET  /vehicles/{id}/fuel     {"percent"}
	GET  /vehicles/{id}/battery  {"percent"}
	POST /vehicles/{id}/engine   {"action": "START"|"STOP"} => {"status": "success"|"error"}

Every request is answered exactly once. Errors are plain-text bodies: 400 for invalid input,
the vendor's own status and reason when the vendor rejects a request (for example 404 for an
unknown vehicle id), 504 when the vendor does not answer in time, and 500 otherwise.
*/
package proxy

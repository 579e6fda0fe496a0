// Package classify implements the Message Classifier: it parses each raw
// inbound frame, discards heartbeat and stream-status control frames, and
// dispatches substantive payloads to the handler registered for their
// kind. Bare order objects, which carry no discriminant, are recognized by
// the presence of an OrderID field.
package classify

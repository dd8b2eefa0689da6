// Package protocol defines the WebSocket wire format.
//
// Every frame is a JSON envelope {"event": name, "data": payload}. Decode turns an inbound
// frame into one typed Request variant per event name; Encode builds outbound frames.
package protocol

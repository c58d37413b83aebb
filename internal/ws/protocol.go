package ws

import "encoding/json"

// Frame types spoken over the socket. Client frames carry a caller-chosen
// correlation id; next/complete frames for a registration reuse the id of
// the subscribe frame that created it, since one-shot deliveries fire before
// a subscription id exists.
const (
	// client -> server
	typeStart       = "start"
	typeStop        = "stop"
	typeParse       = "parse"
	typeDiscard     = "discard"
	typeSubscribe   = "subscribe"
	typeUnsubscribe = "unsubscribe"

	// server -> client
	typeStarted    = "started"
	typeStopped    = "stopped"
	typeParsed     = "parsed"
	typeSubscribed = "subscribed"
	typeNext       = "next"
	typeComplete   = "complete"
	typeError      = "error"
)

// clientFrame is any message received from the client
type clientFrame struct {
	Type              string          `json:"type"`
	ID                int64           `json:"id,omitempty"`
	UseDefaultProfile bool            `json:"useDefaultProfile,omitempty"`
	Query             string          `json:"query,omitempty"`
	QueryID           int32           `json:"queryId,omitempty"`
	OperationName     string          `json:"operationName,omitempty"`
	Variables         json.RawMessage `json:"variables,omitempty"`
	SubscriptionID    int32           `json:"subscriptionId,omitempty"`
}

// serverFrame is any message sent to the client
type serverFrame struct {
	Type           string          `json:"type"`
	ID             int64           `json:"id,omitempty"`
	Started        bool            `json:"started,omitempty"`
	QueryID        int32           `json:"queryId,omitempty"`
	SubscriptionID int32           `json:"subscriptionId,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Error          string          `json:"error,omitempty"`
}

func marshalFrame(f serverFrame) []byte {
	data, err := json.Marshal(f)
	if err != nil {
		// serverFrame has no unmarshalable fields; this cannot happen
		return []byte(`{"type":"error","error":"internal encoding failure"}`)
	}
	return data
}

func startedFrame(started bool) []byte {
	return marshalFrame(serverFrame{Type: typeStarted, Started: started})
}

func stoppedFrame() []byte {
	return marshalFrame(serverFrame{Type: typeStopped})
}

func parsedFrame(id int64, queryID int32) []byte {
	return marshalFrame(serverFrame{Type: typeParsed, ID: id, QueryID: queryID})
}

func subscribedFrame(id int64, subscriptionID int32) []byte {
	return marshalFrame(serverFrame{Type: typeSubscribed, ID: id, SubscriptionID: subscriptionID})
}

func nextFrame(id int64, payload string) []byte {
	return marshalFrame(serverFrame{Type: typeNext, ID: id, Payload: json.RawMessage(payload)})
}

func completeFrame(id int64) []byte {
	return marshalFrame(serverFrame{Type: typeComplete, ID: id})
}

func errorFrame(id int64, message string) []byte {
	return marshalFrame(serverFrame{Type: typeError, ID: id, Error: message})
}

package request

// SchedulerRequest represents the JSON body for scheduler control.
type SchedulerRequest struct {
	// Action controls the pending redelivery scheduler. Allowed values:
	// - "start": start processing batches
	// - "stop":  stop processing batches
	Action string `json:"action"`
}

// SendTextRequest is the body of a direct or broadcast send.
type SendTextRequest struct {
	Text string `json:"text"`
	// Priority is low, normal, high or critical. Defaults to normal.
	Priority string `json:"priority,omitempty"`
	// Strategy applies to broadcasts only: direct, fan_out or power_efficient.
	Strategy string `json:"strategy,omitempty"`
}

// CreateGroupRequest creates a group owned by the gateway device.
type CreateGroupRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// AddMemberRequest adds a device to a group.
type AddMemberRequest struct {
	DeviceID string `json:"deviceId"`
}

// TrustPeerRequest carries the hex encoded X25519 key of a peer.
type TrustPeerRequest struct {
	Key string `json:"key"`
}

// WebhookRequest is the relay wire format, outbound and inbound.
type WebhookRequest struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Group     string `json:"group,omitempty"`
	Kind      string `json:"kind"`
	Content   string `json:"content,omitempty"`
	Priority  int32  `json:"priority"`
	Timestamp int64  `json:"timestamp,omitempty"`
	AckFor    string `json:"ackFor,omitempty"`
	// Frame carries the CBOR envelope for payloads JSON cannot express.
	Frame      []byte `json:"frame,omitempty"`
	RequireAck bool   `json:"requireAck,omitempty"`
}

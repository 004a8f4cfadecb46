package models

// TextMessagePort is the port tag PotatoMesh attaches to plain text packets.
const TextMessagePort = "TEXT_MESSAGE_APP"

// Message represents a mesh packet as returned by the PotatoMesh messages API.
type Message struct {
	ID          uint64   `json:"id"`
	RxTime      uint64   `json:"rx_time"` // Unix seconds, primary ordering key
	RxISO       string   `json:"rx_iso"`  // Display only
	FromID      string   `json:"from_id"`
	ToID        string   `json:"to_id"`
	Channel     uint8    `json:"channel"`
	PortNum     *string  `json:"portnum,omitempty"`
	Text        string   `json:"text"`
	RSSI        *int16   `json:"rssi,omitempty"`
	HopLimit    *uint8   `json:"hop_limit,omitempty"`
	LoraFreq    uint32   `json:"lora_freq"`
	ModemPreset string   `json:"modem_preset"`
	ChannelName string   `json:"channel_name"`
	SNR         *float32 `json:"snr,omitempty"`
	ReplyID     *uint64  `json:"reply_id,omitempty"`
	NodeID      string   `json:"node_id"`
}

// IsText reports whether the message should be relayed as chat text.
// Messages without a port tag are treated as text.
func (m *Message) IsText() bool {
	return m.PortNum == nil || *m.PortNum == TextMessagePort
}

// FetchPlan holds the query parameters for one messages API request.
type FetchPlan struct {
	Limit *uint32 // nil means unbounded
	Since *uint64 // nil means no lower bound on rx_time
}

package transport

// Envelope wraps every API response. Success responses carry Data and the
// optional Meta block (filter counts, sync status); error responses carry
// the domain error code plus a human-readable message in Error.
type Envelope struct {
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  interface{} `json:"error,omitempty"`
	Meta   interface{} `json:"meta,omitempty"`
}

// NewSuccess builds a success envelope around data. meta may be nil.
func NewSuccess(data interface{}, meta interface{}) Envelope {
	return Envelope{Status: "success", Data: data, Meta: meta}
}

// NewError builds an error envelope. code should be a domain error code so
// clients can branch on it without parsing the message.
func NewError(code string, err interface{}, meta interface{}) Envelope {
	return Envelope{Status: "error", Code: code, Error: err, Meta: meta}
}

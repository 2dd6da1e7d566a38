// Package ctlsock defines the JSON wire format spoken over the
// securestore status control socket (see internal/ctlsocksrv).
package ctlsock

// RequestStruct is sent by a client. StoreName selects which open store
// to report on; an empty StoreName means "all open stores".
type RequestStruct struct {
	StoreName string `json:"StoreName"`
}

// ResponseStruct is the reply to a RequestStruct.
type ResponseStruct struct {
	// Stores holds one StoreStatus per open store that matched the
	// request.
	Stores []StoreStatus `json:"Stores,omitempty"`
	// WarnText carries a non-fatal warning (e.g. unknown store name).
	WarnText string `json:"WarnText,omitempty"`
	// ErrText is set on failure.
	ErrText string `json:"ErrText,omitempty"`
	ErrNo   int32  `json:"ErrNo,omitempty"`
}

// StoreStatus is a point-in-time snapshot of one open store.
type StoreStatus struct {
	Name               string `json:"Name"`
	MetaCounter        uint32 `json:"MetaCounter"`
	Length             uint32 `json:"Length"`
	OpenHandles        int    `json:"OpenHandles"`
	BackupBitsFlipped  int    `json:"BackupBitsFlipped"`
	LastCommitAt       int64  `json:"LastCommitAt"`
}

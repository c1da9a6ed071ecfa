package quota

// Usage is the client-facing view of an account's storage consumption.
type Usage struct {
	ConsumedBytes  int64 `json:"consumed_bytes"`
	QuotaBytes     int64 `json:"quota_bytes"`
	AvailableBytes int64 `json:"available_bytes"`
}

package entity

type Ack struct {
	Ok bool `json:"ok"`
}

package model

type TallyBucket struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

type TallyResponse struct {
	By      string        `json:"by"`
	Total   int64         `json:"total"`
	Buckets []TallyBucket `json:"buckets"`
}

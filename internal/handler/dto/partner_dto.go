package dto

type QuotaResponse struct {
	PartnerID string `json:"partner_id"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	ResetAt   int64  `json:"reset_at"`
}

type WebhookAcceptedResponse struct {
	Subscription string `json:"subscription"`
	Status       string `json:"status"`
}

package models

import "time"

// User represents a signed-in identity
type User struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email,omitempty"`
	Avatar           string    `json:"avatar"`
	Code             string    `json:"code"`
	LikedCards       []string  `json:"liked_cards"`
	HighlightedCards []string  `json:"highlighted_cards"`
	PushToken        *string   `json:"push_token,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Partner is one mirrored half of a pairing, stored under OwnerID and pointing at PartnerID
type Partner struct {
	OwnerID     string        `json:"owner_id"`
	PartnerID   string        `json:"partner_id"`
	Name        string        `json:"name"`
	Avatar      string        `json:"avatar"`
	Code        string        `json:"code"`
	Status      PairingStatus `json:"status"`
	RequestedBy string        `json:"requested_by"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Mirror returns the counterpart half of p, describing owner from the partner's point of view
func (p *Partner) Mirror(owner *User) *Partner {
	return &Partner{
		OwnerID:     p.PartnerID,
		PartnerID:   p.OwnerID,
		Name:        owner.Name,
		Avatar:      owner.Avatar,
		Code:        owner.Code,
		Status:      p.Status,
		RequestedBy: p.RequestedBy,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// Card represents a content card in the shared deck
type Card struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Image       string   `json:"image"`
}

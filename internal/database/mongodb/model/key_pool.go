package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UnboundedClients max_clients 的哨兵值：不限併發客戶端
const UnboundedClients = -1

// KeyPool 單一上游憑證與其容量限制
type KeyPool struct {
	ID           primitive.ObjectID `json:"id" bson:"_id"`
	ProviderName string             `json:"providerName" bson:"providerName"`
	Name         string             `json:"name" bson:"name"`
	APIKey       string             `json:"-" bson:"apiKey"` // 憑證本體不出現在 JSON
	MaxClients   int                `json:"maxClients" bson:"maxClients"` // -1 = 不限
	// CurrentClients 僅供管理端顯示；佔用數的權威狀態在 Key Pool Manager 記憶體內
	CurrentClients int       `json:"currentClients" bson:"currentClients"`
	Active         bool      `json:"active" bson:"active"`
	CreatedAt      time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Unbounded 池是否不限容量
func (p *KeyPool) Unbounded() bool {
	return p.MaxClients == UnboundedClients
}

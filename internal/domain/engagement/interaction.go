package engagement

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Closed action enum. Weights are the canonical ranking weights and are
// stamped onto each Interaction at insert time.
const (
	ActionCanvasAdd           = "canvas_add"
	ActionClickToRetailer     = "click_to_retailer"
	ActionSearch              = "search"
	ActionFavoriteFromCreator = "favorite_from_creator"
	ActionFavoriteProduct     = "favorite_product"
	ActionWardrobeUpload      = "wardrobe_upload"
	ActionOutfitCreate        = "outfit_create"
	ActionFollowCreator       = "follow_creator"
	ActionPurchaseComplete    = "purchase_complete"
	ActionViewProduct         = "view_product"
	ActionViewPost            = "view_post"
	ActionShare               = "share"
	ActionComment             = "comment"
	ActionDislikeProduct      = "dislike_product"
)

// ActionWeights maps every valid action type to its canonical weight.
// dislike_product is the only signed weight.
var ActionWeights = map[string]float64{
	ActionCanvasAdd:           20,
	ActionClickToRetailer:     18,
	ActionSearch:              17,
	ActionFavoriteFromCreator: 16,
	ActionFavoriteProduct:     15,
	ActionWardrobeUpload:      20,
	ActionOutfitCreate:        30,
	ActionFollowCreator:       15,
	ActionPurchaseComplete:    50,
	ActionViewProduct:         3,
	ActionViewPost:            2,
	ActionShare:               12,
	ActionComment:             8,
	ActionDislikeProduct:      -2,
}

// PositiveActions are the actions that feed profile token aggregation.
var PositiveActions = []string{
	ActionFavoriteProduct,
	ActionCanvasAdd,
	ActionWardrobeUpload,
	ActionClickToRetailer,
	ActionPurchaseComplete,
	ActionFavoriteFromCreator,
}

// HighIntentActions signal purchase intent for similar-user aggregation.
var HighIntentActions = []string{
	ActionCanvasAdd,
	ActionPurchaseComplete,
	ActionClickToRetailer,
	ActionFavoriteProduct,
}

// Item types an interaction may reference.
const (
	ItemTypeProduct  = "product"
	ItemTypePost     = "post"
	ItemTypeCreator  = "creator"
	ItemTypeOutfit   = "outfit"
	ItemTypeWardrobe = "wardrobe"
)

// Recognised metadata keys that drive aggregation. Unknown keys are
// carried but ignored by the engine.
const (
	MetaBrand        = "brand"
	MetaCategory     = "category"
	MetaColor        = "color"
	MetaPrice        = "price"
	MetaSize         = "size"
	MetaTags         = "tags"
	MetaQuery        = "query"
	MetaCreatorID    = "creator_id"
	MetaCreatorStyle = "creator_style"
)

// Interaction is one immutable user action. Rows are append-only; the
// weight column is fixed at insert from ActionWeights.
type Interaction struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index;index:idx_interaction_user_client,unique,priority:1" json:"user_id"`
	// Client-provided idempotency key (generated when missing).
	ClientEventID string            `gorm:"column:client_event_id;not null;index:idx_interaction_user_client,unique,priority:2" json:"client_event_id"`
	ActionType    string            `gorm:"column:action_type;not null;index" json:"action_type"`
	ItemID        string            `gorm:"column:item_id;index" json:"item_id,omitempty"`
	ItemType      string            `gorm:"column:item_type;index" json:"item_type,omitempty"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"`
	Weight        float64           `gorm:"column:weight;not null" json:"weight"`
	Source        string            `gorm:"column:source" json:"source,omitempty"`
	CreatedAt     time.Time         `gorm:"not null;default:now();index" json:"created_at"`
	DeletedAt     gorm.DeletedAt    `gorm:"index" json:"deleted_at,omitempty"`
}

func (Interaction) TableName() string { return "interaction" }

// MetaString reads a recognised string metadata key, empty when absent.
func (i *Interaction) MetaString(key string) string {
	if i == nil || i.Metadata == nil {
		return ""
	}
	if v, ok := i.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// MetaFloat reads a numeric metadata key. JSONB numbers decode as float64.
func (i *Interaction) MetaFloat(key string) (float64, bool) {
	if i == nil || i.Metadata == nil {
		return 0, false
	}
	switch v := i.Metadata[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// MetaStrings reads a string-list metadata key (e.g. tags).
func (i *Interaction) MetaStrings(key string) []string {
	if i == nil || i.Metadata == nil {
		return nil
	}
	raw, ok := i.Metadata[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

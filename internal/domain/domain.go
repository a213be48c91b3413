package domain

import (
	"github.com/yungbote/lookbook-backend/internal/domain/catalog"
	"github.com/yungbote/lookbook-backend/internal/domain/engagement"
	"github.com/yungbote/lookbook-backend/internal/domain/jobs"
)

const (
	ActionCanvasAdd           = engagement.ActionCanvasAdd
	ActionClickToRetailer     = engagement.ActionClickToRetailer
	ActionSearch              = engagement.ActionSearch
	ActionFavoriteFromCreator = engagement.ActionFavoriteFromCreator
	ActionFavoriteProduct     = engagement.ActionFavoriteProduct
	ActionWardrobeUpload      = engagement.ActionWardrobeUpload
	ActionOutfitCreate        = engagement.ActionOutfitCreate
	ActionFollowCreator       = engagement.ActionFollowCreator
	ActionPurchaseComplete    = engagement.ActionPurchaseComplete
	ActionViewProduct         = engagement.ActionViewProduct
	ActionViewPost            = engagement.ActionViewPost
	ActionShare               = engagement.ActionShare
	ActionComment             = engagement.ActionComment
	ActionDislikeProduct      = engagement.ActionDislikeProduct

	ItemTypeProduct  = engagement.ItemTypeProduct
	ItemTypePost     = engagement.ItemTypePost
	ItemTypeCreator  = engagement.ItemTypeCreator
	ItemTypeOutfit   = engagement.ItemTypeOutfit
	ItemTypeWardrobe = engagement.ItemTypeWardrobe

	MetaBrand        = engagement.MetaBrand
	MetaCategory     = engagement.MetaCategory
	MetaColor        = engagement.MetaColor
	MetaPrice        = engagement.MetaPrice
	MetaSize         = engagement.MetaSize
	MetaTags         = engagement.MetaTags
	MetaQuery        = engagement.MetaQuery
	MetaCreatorID    = engagement.MetaCreatorID
	MetaCreatorStyle = engagement.MetaCreatorStyle

	FrequencyLow    = engagement.FrequencyLow
	FrequencyMedium = engagement.FrequencyMedium
	FrequencyHigh   = engagement.FrequencyHigh

	JobTypeProfileRebuild   = jobs.JobTypeProfileRebuild
	JobTypeAnalyticsRebuild = jobs.JobTypeAnalyticsRebuild
	JobTypeIndexRebuild     = jobs.JobTypeIndexRebuild
	JobTypeCatalogImport    = jobs.JobTypeCatalogImport

	JobStatusQueued    = jobs.JobStatusQueued
	JobStatusRunning   = jobs.JobStatusRunning
	JobStatusSucceeded = jobs.JobStatusSucceeded
	JobStatusFailed    = jobs.JobStatusFailed
	JobStatusCanceled  = jobs.JobStatusCanceled
)

var (
	ActionWeights     = engagement.ActionWeights
	PositiveActions   = engagement.PositiveActions
	HighIntentActions = engagement.HighIntentActions
)

type Interaction = engagement.Interaction
type StyleProfile = engagement.StyleProfile
type ProductAnalytics = engagement.ProductAnalytics
type PricePoint = engagement.PricePoint

type Product = catalog.Product

type JobRun = jobs.JobRun

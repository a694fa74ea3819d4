package models

import "time"

// Activity actions.
const (
	ActionCreateProductionOrder = "create_production_order"
	ActionSetProducedQuantity   = "set_produced_quantity"
	ActionDeleteProductionOrder = "delete_production_order"
	ActionCreate                = "create"
	ActionUpdate                = "update"
	ActionDelete                = "delete"
	ActionReceiveBatch          = "receive_batch"
	ActionAdjustBatch           = "adjust_batch"
	ActionSetStock              = "set_stock"
)

// Entity types referenced by activity entries.
const (
	EntityProductionOrder  = "production_order"
	EntityRawMaterial      = "raw_material"
	EntityBatch            = "raw_material_batch"
	EntityFinishedProduct  = "finished_product"
	EntityPackaging        = "packaging"
	EntityMaterialCategory = "material_category"
	EntityProductCategory  = "product_category"
)

// ActivityEntry is one line of the audit trail.
type ActivityEntry struct {
	ID         string
	Actor      string
	Action     string
	EntityType string
	EntityID   string
	Detail     string
	CreatedAt  time.Time
}

package models

// SKUReference carries static catalogue and ownership data for a product.
type SKUReference struct {
	NmID            int64  `json:"nmId" db:"nm_id" mapstructure:"nm_id"`
	CategoryWB      string `json:"categoryWB" db:"category_wb" mapstructure:"category_wb"`
	SubCategoryWB   string `json:"subCategoryWB" db:"sub_category_wb" mapstructure:"sub_category_wb"`
	BrandManager    string `json:"brandManager" db:"brand_manager" mapstructure:"brand_manager"`
	CategoryManager string `json:"categoryManager" db:"category_manager" mapstructure:"category_manager"`
}

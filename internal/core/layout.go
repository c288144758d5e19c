package core

// Layout describes one output table: which rows it keeps and which columns it
// copies. The set of layouts is fixed; order is emission order.
type Layout struct {
	Key       string         // Stable identifier: "KeywordTargetingMap"
	Sheet     string         // Output sheet name, numbered to keep tab order
	Entity    EntityCategory // Rows whose Entity matches this category
	Targeting TargetingClass // Further restriction on product targeting rows
	Columns   []string       // Column letters copied, in output order
}

var (
	keywordColumns          = []string{"D", "E", "H", "L", "M", "R", "S", "T", "AC"}
	productAdColumns        = []string{"D", "E", "G", "L", "M", "R", "S", "T", "W"}
	productTargetingColumns = []string{"D", "E", "I", "L", "M", "R", "S", "T", TargetingColumn}
)

// Table keys, in emission order.
const (
	KeyKeywordTargeting  = "KeywordTargetingMap"
	KeyAdvertisedProduct = "AdvertisedProductMap"
	KeyPAT               = "PATMap"
	KeyCategory          = "CategoryMap"
	KeyAuto              = "AutoMap"
)

// Layouts is the bulk-export column map for Sponsored Products.
var Layouts = []Layout{
	{Key: KeyKeywordTargeting, Sheet: "1-SP-KeywordTargetingMap", Entity: EntityKeyword, Columns: keywordColumns},
	{Key: KeyAdvertisedProduct, Sheet: "2-SP-AdvertisedProductMap", Entity: EntityProductAd, Columns: productAdColumns},
	{Key: KeyPAT, Sheet: "3-SP-PATMap", Entity: EntityProductTargeting, Targeting: TargetingPAT, Columns: productTargetingColumns},
	{Key: KeyCategory, Sheet: "4-SP-CategoryMap", Entity: EntityProductTargeting, Targeting: TargetingCategory, Columns: productTargetingColumns},
	{Key: KeyAuto, Sheet: "5-SP-AutoMap", Entity: EntityProductTargeting, Targeting: TargetingAuto, Columns: productTargetingColumns},
}

package constants

// Field limits shared by validation and the schema.
const (
	NameMaxLength            = 150
	TagNameMaxLength         = 50
	TagSlugMaxLength         = 50
	MeasurementUnitMaxLength = 10
	EmailMaxLength           = 254
	ShortCodeLength          = 6
	MinAmount                = 1
	MinCookingTime           = 1
)

// ShoppingCartFilename is the attachment name of the downloaded list.
const ShoppingCartFilename = "shopping_cart.txt"

// ShoppingCartXLSXFilename is the attachment name of the spreadsheet variant.
const ShoppingCartXLSXFilename = "shopping_cart.xlsx"

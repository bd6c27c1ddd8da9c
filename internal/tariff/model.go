package tariff

import "time"

// Category identifies a billable charge category with its own rate column.
type Category string

const (
	CategoryWardICU      Category = "ward_icu"
	CategoryWardDeluxe   Category = "ward_deluxe"
	CategoryWardAC       Category = "ward_ac"
	CategoryWardGeneral  Category = "ward_general"
	CategoryNursing      Category = "nursing"
	CategoryDoctor       Category = "doctor"
	CategoryLab          Category = "lab"
	CategoryRadiology    Category = "radiology"
	CategorySurgery      Category = "surgery"
	CategoryRegistration Category = "registration"
	CategoryConsultant   Category = "consultant"
	CategoryOther        Category = "other"
)

// Standard names a rate schedule (insurance scheme, self-pay, etc.).
type Standard struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Rate holds the two tariff columns for one (standard, category) pair.
type Rate struct {
	ID            int64
	StandardID    int64
	Category      Category
	NABHCharge    float64
	NonNABHCharge float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

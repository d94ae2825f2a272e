package catalog

// tierOverrides classifies credits whose catalog entry carries no explicit
// tier. Keys are normalized names. Anything absent here defaults to low.
var tierOverrides = map[string]Tier{
	// High: capital-intensive strategies that dominate a budget.
	"optimize energy performance":                TierHigh,
	"renewable energy":                           TierHigh,
	"enhanced commissioning":                     TierHigh,
	"grid harmonization":                         TierHigh,
	"building life-cycle impact reduction":       TierHigh,
	"leed for neighborhood development location": TierHigh,

	// Medium: meaningful design or documentation effort.
	"indoor water use reduction":                   TierMedium,
	"rainwater management":                         TierMedium,
	"heat island reduction":                        TierMedium,
	"surrounding density and diverse uses":         TierMedium,
	"access to quality transit":                    TierMedium,
	"high priority site and equitable development": TierMedium,
	"low-emitting materials":                       TierMedium,
	"daylight":                                     TierMedium,
	"enhanced indoor air quality strategies":       TierMedium,
	"indoor air quality assessment":                TierMedium,
	"environmental product declarations":           TierMedium,
	"sourcing of raw materials":                    TierMedium,
	"material ingredients":                         TierMedium,
	"construction and demolition waste management": TierMedium,
	"protect or restore habitat":                   TierMedium,
	"innovation":                                   TierMedium,
}

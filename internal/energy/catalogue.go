package energy

import "fmt"

// CommodityType declares one source series: where to fetch it, which facets
// select a state, which window to request and how to read the payload.
type CommodityType struct {
	Family     Family
	Name       string
	Route      string
	Frequency  Frequency
	DataColumn string
	Facets     func(stateCode string) map[string]string
	Window     WindowPolicy
	Schema     Schema
}

// Catalogue maps each family to the commodity types ingested for it.
type Catalogue map[Family][]CommodityType

// TypesFor returns the commodity types of a family.
func (c Catalogue) TypesFor(f Family) ([]CommodityType, error) {
	types, ok := c[f]
	if !ok || len(types) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, f)
	}
	return types, nil
}

// Fuel product codes used by the weekly retail gasoline series.
const (
	productRegular = "EPMR"
	productPremium = "EPMP"
)

// DefaultCatalogue returns the gasoline and retail electricity series.
func DefaultCatalogue() Catalogue {
	return Catalogue{
		FamilyFuel: {
			gasolineType("regular", productRegular),
			gasolineType("premium", productPremium),
		},
		FamilyElectricity: {
			{
				Family:     FamilyElectricity,
				Name:       "residential",
				Route:      "electricity/retail-sales/data",
				Frequency:  FrequencyMonthly,
				DataColumn: "price",
				Facets: func(state string) map[string]string {
					return map[string]string{"stateid": state, "sectorid": "RES"}
				},
				Window: MonthlyRollingWindow,
				Schema: Schema{
					Container:    ContainerRows,
					DateField:    "period",
					ValueField:   "price",
					DateEncoding: EncodingYearMonth,
				},
			},
		},
	}
}

func gasolineType(name, product string) CommodityType {
	return CommodityType{
		Family:     FamilyFuel,
		Name:       name,
		Route:      "petroleum/pri/gnd/data",
		Frequency:  FrequencyWeekly,
		DataColumn: "value",
		Facets: func(state string) map[string]string {
			return map[string]string{"duoarea": "S" + state, "product": product}
		},
		Window: WeeklyFixedWindow,
		Schema: Schema{
			Container:    ContainerSeries,
			DateEncoding: EncodingCompactDate,
		},
	}
}

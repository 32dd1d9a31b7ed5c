package models

import "fmt"

// Category describes one scrape target: which table it lands in and how each
// provider is queried and filtered for it.
type Category struct {
	Name  string
	Table string

	// SodreIndices are the search-lots indices queried on Sodré.
	SodreIndices []string
	// SuperbidSlugs are Superbid category slugs, each paginated independently.
	SuperbidSlugs []string
	// MegaleiloesType is the product type filter; empty means Megaleilões has
	// no feed for this category.
	MegaleiloesType string

	// Keywords restrict mixed feeds to relevant lots. Empty accepts everything.
	Keywords []string
	// Brands drives brand detection in the title normalizer.
	Brands []string
	// EmptyTitle is the sentinel used when a title normalizes to nothing.
	EmptyTitle string
}

var vehicleBrands = []string{
	"AUDI", "BMW", "BYD", "CAOA", "CHEVROLET", "CHERY", "CITROEN",
	"CITROËN", "DAF", "DUCATI", "FIAT", "FORD", "GWM", "HARLEY",
	"HARLEY-DAVIDSON", "HONDA", "HYUNDAI", "IVECO", "JAC", "JEEP",
	"KAWASAKI", "KIA", "LAND ROVER", "LIFAN", "MAN", "MAZDA",
	"MERCEDES", "MERCEDES-BENZ", "MITSUBISHI", "NISSAN", "PEUGEOT",
	"PORSCHE", "RENAULT", "ROYAL ENFIELD", "SCANIA", "SUBARU",
	"SUZUKI", "TOYOTA", "TRIUMPH", "VOLKSWAGEN", "VOLVO", "VW",
	"YAMAHA",
}

var (
	Veiculos = Category{
		Name:            "veiculos",
		Table:           "veiculos",
		SodreIndices:    []string{"veiculos"},
		SuperbidSlugs:   []string{"carros-motos", "caminhoes-onibus"},
		MegaleiloesType: "VEHICLE",
		Brands:          vehicleBrands,
		EmptyTitle:      "Veículo sem título",
	}

	Tecnologia = Category{
		Name:          "tecnologia",
		Table:         "tecnologia",
		SodreIndices:  []string{"materiais"},
		SuperbidSlugs: []string{"tecnologia"},
		Keywords: []string{
			"notebook", "computador", "pc", "monitor", "impressora", "tablet",
			"celular", "smartphone", "iphone", "samsung", "dell", "hp", "lenovo",
		},
		Brands: []string{
			"APPLE", "ACER", "ASUS", "DELL", "HP", "LENOVO", "LG", "MOTOROLA",
			"MULTILASER", "POSITIVO", "SAMSUNG", "SONY", "XIAOMI", "EPSON", "BROTHER",
		},
		EmptyTitle: "Sem título",
	}

	BensConsumo = Category{
		Name:          "bens_consumo",
		Table:         "bens_consumo",
		SodreIndices:  []string{"materiais"},
		SuperbidSlugs: []string{"bolsas-canetas-joias-e-relogios"},
		Keywords: []string{
			"roupa", "calcado", "tenis", "sapato", "bolsa", "relogio", "joia", "acessorio",
		},
		Brands: []string{
			"ADIDAS", "CASIO", "LOUIS VUITTON", "MONTBLANC", "NIKE", "OAKLEY",
			"PRADA", "RAY-BAN", "ROLEX", "TECHNOS", "TOMMY", "GUCCI",
		},
		EmptyTitle: "Sem título",
	}

	Eletrodomesticos = Category{
		Name:          "eletrodomesticos",
		Table:         "eletrodomesticos",
		SodreIndices:  []string{"materiais"},
		SuperbidSlugs: []string{"eletrodomesticos"},
		Keywords: []string{
			"geladeira", "refrigerador", "fogao", "microondas", "lavadora",
			"maquina de lavar", "freezer", "ar condicionado", "climatizador",
			"liquidificador", "aspirador", "cooktop", "lava-loucas",
		},
		Brands: []string{
			"ARNO", "BRASTEMP", "CONSUL", "ELECTROLUX", "ESMALTEC", "LG",
			"MIDEA", "MONDIAL", "PHILCO", "PHILIPS", "SAMSUNG", "BRITANIA",
		},
		EmptyTitle: "Sem título",
	}
)

// AllCategories lists every category in run order.
var AllCategories = []Category{Veiculos, Tecnologia, BensConsumo, Eletrodomesticos}

// LookupCategory returns the category registered under name.
func LookupCategory(name string) (Category, error) {
	for _, c := range AllCategories {
		if c.Name == name {
			return c, nil
		}
	}
	return Category{}, fmt.Errorf("unknown category %q", name)
}

package models

// Category is the closed set of card categories
type Category string

const (
	CategoryRomantic    Category = "Romântico"
	CategoryFantasies   Category = "Fantasias"
	CategoryRelaxation  Category = "Relaxamento"
	CategoryFun         Category = "Diversão"
	CategoryExploration Category = "Exploração"
	CategoryNew         Category = "Novo"
)

// Categories lists every category in display order
var Categories = []Category{
	CategoryRomantic,
	CategoryFantasies,
	CategoryRelaxation,
	CategoryFun,
	CategoryExploration,
	CategoryNew,
}

// Valid reports whether c is one of Categories
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

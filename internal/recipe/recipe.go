package recipe

import "strings"

// MaxIngredients is the number of ingredient/measure slots a catalog meal carries.
const MaxIngredients = 20

// Ingredient is a catalog ingredient. Name is unique within a listing.
type Ingredient struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
}

// Summary is the reduced meal record returned by ingredient filters.
type Summary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// IngredientMeasure is one optional (name, measure) slot of a Meal.
// An empty Name marks an unused slot.
type IngredientMeasure struct {
	Name    string `json:"name,omitempty"`
	Measure string `json:"measure,omitempty"`
}

// Meal is a full catalog entry.
type Meal struct {
	ID           string                            `json:"id"`
	Name         string                            `json:"name"`
	Category     string                            `json:"category,omitempty"`
	Area         string                            `json:"area,omitempty"`
	Instructions string                            `json:"instructions,omitempty"`
	Thumbnail    string                            `json:"thumbnail,omitempty"`
	Tags         []string                          `json:"tags,omitempty"`
	YouTube      string                            `json:"youtube,omitempty"`
	Source       string                            `json:"source,omitempty"`
	Ingredients  [MaxIngredients]IngredientMeasure `json:"ingredients"`
}

// Summary projects the meal to its id, name and thumbnail.
func (m Meal) Summary() Summary {
	return Summary{ID: m.ID, Name: m.Name, Thumbnail: m.Thumbnail}
}

// UsedIngredients returns the filled slots in catalog order.
func (m Meal) UsedIngredients() []IngredientMeasure {
	var used []IngredientMeasure
	for _, im := range m.Ingredients {
		if strings.TrimSpace(im.Name) == "" {
			continue
		}
		used = append(used, im)
	}
	return used
}

// Steps splits the instructions into non-empty lines.
func (m Meal) Steps() []string {
	var steps []string
	for _, line := range strings.Split(strings.ReplaceAll(m.Instructions, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			steps = append(steps, line)
		}
	}
	return steps
}

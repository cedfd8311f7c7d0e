package stock

import (
	"strings"

	"dairy-backend/internal/models"
)

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// MatchProduct finds the catalog product a free-text name refers to. An exact
// case-insensitive match wins. Otherwise a product matches when either name
// contains the other, and the closest in length is chosen. Ties go to the
// earlier product. Returns nil when nothing matches.
func MatchProduct(products []models.Product, name string) *models.Product {
	needle := normalize(name)
	if needle == "" {
		return nil
	}

	for i := range products {
		if normalize(products[i].Name) == needle {
			return &products[i]
		}
	}

	var best *models.Product
	bestScore := 0.0
	for i := range products {
		hay := normalize(products[i].Name)
		if hay == "" {
			continue
		}
		if !strings.Contains(hay, needle) && !strings.Contains(needle, hay) {
			continue
		}
		short, long := len(hay), len(needle)
		if short > long {
			short, long = long, short
		}
		if score := float64(short) / float64(long); score > bestScore {
			best, bestScore = &products[i], score
		}
	}
	return best
}

func productNames(products []models.Product) []string {
	names := make([]string, 0, len(products))
	for _, p := range products {
		names = append(names, p.Name)
	}
	return names
}

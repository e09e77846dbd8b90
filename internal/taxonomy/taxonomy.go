// internal/taxonomy/taxonomy.go

// Package taxonomy assigns products to a static two-level category tree by
// counting keyword hits over the product's textual fields.
package taxonomy

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/pricewatch-la/pricewatch/pkg/types"
)

// OthersSlug is assigned when no category keyword matches.
const OthersSlug = "others"

// Node is one category with its match keywords and optional subcategories.
// Keywords are single lowercase words; matching is whole-word.
type Node struct {
	Slug     string
	Keywords []string
	Children []Node
}

// Classifier scores products against a category tree.
type Classifier struct {
	tree []Node
}

// New builds a classifier over the default tree.
func New() *Classifier {
	return &Classifier{tree: defaultTree()}
}

// NewWithTree builds a classifier over a custom tree.
func NewWithTree(tree []Node) *Classifier {
	return &Classifier{tree: tree}
}

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Classify scores the record against every top-level category. A positive
// category also gets its subcategories scored; subcategory slugs are
// path-qualified ("herramientas/electricas"). Results sort by score
// descending, ties keeping tree order. An empty result yields the sentinel
// assignment "others".
func (c *Classifier) Classify(record types.ProductRecord) []types.CategoryAssignment {
	counts := wordCounts(documentText(record))

	var assignments []types.CategoryAssignment
	for _, category := range c.tree {
		score := scoreNode(category, counts)
		if score == 0 {
			continue
		}
		assignments = append(assignments, types.CategoryAssignment{Slug: category.Slug, Score: score})

		for _, child := range category.Children {
			childScore := scoreNode(child, counts)
			if childScore == 0 {
				continue
			}
			assignments = append(assignments, types.CategoryAssignment{
				Slug:  category.Slug + "/" + child.Slug,
				Score: childScore,
			})
		}
	}

	if len(assignments) == 0 {
		return []types.CategoryAssignment{{Slug: OthersSlug, Score: 0}}
	}

	sort.SliceStable(assignments, func(i, j int) bool {
		return assignments[i].Score > assignments[j].Score
	})
	return assignments
}

// documentText concatenates the searchable fields. Specs are included as
// their JSON encoding so both keys and values participate.
func documentText(record types.ProductRecord) string {
	parts := []string{record.Name, record.Description, record.Brand}
	if len(record.Specs) > 0 {
		if encoded, err := json.Marshal(record.Specs); err == nil {
			parts = append(parts, string(encoded))
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func wordCounts(text string) map[string]int {
	counts := make(map[string]int)
	for _, word := range wordPattern.FindAllString(text, -1) {
		counts[word]++
	}
	return counts
}

func scoreNode(node Node, counts map[string]int) int {
	score := 0
	for _, keyword := range node.Keywords {
		score += counts[keyword]
	}
	return score
}

// defaultTree is tuned for Peruvian hardware and home-improvement
// storefronts. Keywords are singular and plural where both occur in listings.
func defaultTree() []Node {
	return []Node{
		{
			Slug: "herramientas",
			Keywords: []string{
				"herramienta", "herramientas", "taladro", "sierra", "amoladora",
				"lijadora", "martillo", "alicate", "destornillador", "atornillador",
				"rotomartillo", "esmeril", "fresadora", "cepillo", "broca", "brocas",
				"disco", "juego",
			},
			Children: []Node{
				{
					Slug: "electricas",
					Keywords: []string{
						"taladro", "sierra", "amoladora", "lijadora", "rotomartillo",
						"atornillador", "esmeril", "fresadora", "inalambrico",
						"inalambrica", "electrica", "electrico", "bateria", "watts",
					},
				},
				{
					Slug: "manuales",
					Keywords: []string{
						"martillo", "alicate", "destornillador", "llave", "cincel",
						"serrucho", "nivel", "wincha", "prensa", "manual",
					},
				},
			},
		},
		{
			Slug: "construccion",
			Keywords: []string{
				"cemento", "ladrillo", "fierro", "arena", "concreto", "andamio",
				"mezcladora", "vibradora", "yeso", "drywall", "calamina",
			},
		},
		{
			Slug: "electricidad",
			Keywords: []string{
				"cable", "cables", "foco", "focos", "interruptor", "tomacorriente",
				"led", "lampara", "luminaria", "extension", "enchufe", "voltaje",
			},
		},
		{
			Slug: "gasfiteria",
			Keywords: []string{
				"tuberia", "tubo", "tubos", "valvula", "grifo", "griferia",
				"caño", "desague", "pvc", "codo", "union", "abrazadera",
			},
		},
		{
			Slug: "pintura",
			Keywords: []string{
				"pintura", "pinturas", "esmalte", "barniz", "latex", "rodillo",
				"brocha", "thinner", "sellador", "imprimante",
			},
		},
		{
			Slug: "jardineria",
			Keywords: []string{
				"manguera", "podadora", "cortacesped", "rastrillo", "maceta",
				"jardin", "riego", "aspersor", "tijera",
			},
		},
		{
			Slug: "seguridad",
			Keywords: []string{
				"casco", "guante", "guantes", "lentes", "arnes", "candado",
				"respirador", "mascarilla", "chaleco", "botas",
			},
		},
		{
			Slug: "limpieza",
			Keywords: []string{
				"detergente", "escoba", "trapeador", "aspiradora", "hidrolavadora",
				"desinfectante", "balde",
			},
		},
	}
}

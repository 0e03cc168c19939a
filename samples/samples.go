// Package samples holds the built-in sample decks. They are not stored in
// the database; a user adopts a card by copying it into Uncategorized.
package samples

import (
	"github.com/andrewpaige1/tarjetas-api/cards"
	"github.com/andrewpaige1/tarjetas-api/models"
)

type Card struct {
	EnglishWord string `json:"english_word"`
	SpanishWord string `json:"spanish_word"`
	ImageURL    string `json:"image_url"`
	Customized  bool   `json:"customized,omitempty"`
}

type Deck struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Cards       []Card `json:"cards"`
	CardCount   int    `json:"card_count"`
	CoverImage  string `json:"cover_image,omitempty"`
}

func img(name string) string {
	return "/images/samples/" + name + ".jpg"
}

var builtin = []Deck{
	{
		ID:          "animals",
		Name:        "Animals",
		Description: "Common animals",
		Cards: []Card{
			{"Dog", "Perro", img("dog"), false},
			{"Cat", "Gato", img("cat"), false},
			{"Bird", "Pájaro", img("bird"), false},
			{"Horse", "Caballo", img("horse"), false},
			{"Cow", "Vaca", img("cow"), false},
			{"Fish", "Pez", img("fish"), false},
			{"Rabbit", "Conejo", img("rabbit"), false},
			{"Turtle", "Tortuga", img("turtle"), false},
		},
	},
	{
		ID:          "home",
		Name:        "Home",
		Description: "Things around the house",
		Cards: []Card{
			{"Chair", "Silla", img("chair"), false},
			{"Table", "Mesa", img("table"), false},
			{"Bed", "Cama", img("bed"), false},
			{"Window", "Ventana", img("window"), false},
			{"Door", "Puerta", img("door"), false},
			{"Lamp", "Lámpara", img("lamp"), false},
			{"Sofa", "Sofá", img("sofa"), false},
			{"Mirror", "Espejo", img("mirror"), false},
		},
	},
	{
		ID:          "food",
		Name:        "Food",
		Description: "Everyday food and drinks",
		Cards: []Card{
			{"Apple", "Manzana", img("apple"), false},
			{"Bread", "Pan", img("bread"), false},
			{"Milk", "Leche", img("milk"), false},
			{"Cheese", "Queso", img("cheese"), false},
			{"Egg", "Huevo", img("egg"), false},
			{"Rice", "Arroz", img("rice"), false},
			{"Water", "Agua", img("water"), false},
			{"Banana", "Plátano", img("banana"), false},
		},
	},
	{
		ID:          "clothes",
		Name:        "Clothes",
		Description: "What we wear",
		Cards: []Card{
			{"Shirt", "Camisa", img("shirt"), false},
			{"Shoes", "Zapatos", img("shoes"), false},
			{"Hat", "Sombrero", img("hat"), false},
			{"Dress", "Vestido", img("dress"), false},
			{"Jacket", "Chaqueta", img("jacket"), false},
			{"Socks", "Calcetines", img("socks"), false},
		},
	},
}

// List returns every sample deck.
func List() []Deck {
	out := make([]Deck, len(builtin))
	for i, d := range builtin {
		out[i] = d.clone()
	}
	return out
}

func Get(id string) (Deck, bool) {
	for _, d := range builtin {
		if d.ID == id {
			return d.clone(), true
		}
	}
	return Deck{}, false
}

// Contains reports whether the deck has a card with the given words.
func (d Deck) Contains(english, spanish string) (Card, bool) {
	for _, c := range d.Cards {
		if c.EnglishWord == english && c.SpanishWord == spanish {
			return c, true
		}
	}
	return Card{}, false
}

// View is the deck as one user sees it: custom images applied and cards
// the user adopted into Uncategorized left out.
func View(d Deck, customs []models.SampleCardCustomization, adopted []cards.WordPair) Deck {
	images := make(map[cards.WordPair]string, len(customs))
	for _, c := range customs {
		if c.SampleDeckID == d.ID {
			images[cards.WordPair{English: c.EnglishWord, Spanish: c.SpanishWord}] = c.ImageURL
		}
	}
	hidden := make(map[cards.WordPair]bool, len(adopted))
	for _, p := range adopted {
		hidden[p] = true
	}

	out := d
	out.Cards = make([]Card, 0, len(d.Cards))
	for _, c := range d.Cards {
		key := cards.WordPair{English: c.EnglishWord, Spanish: c.SpanishWord}
		if hidden[key] {
			continue
		}
		if url, ok := images[key]; ok && url != "" {
			c.ImageURL = url
			c.Customized = true
		}
		out.Cards = append(out.Cards, c)
	}
	return out.summarize()
}

func (d Deck) clone() Deck {
	out := d
	out.Cards = append([]Card(nil), d.Cards...)
	return out.summarize()
}

func (d Deck) summarize() Deck {
	d.CardCount = len(d.Cards)
	d.CoverImage = ""
	for _, c := range d.Cards {
		if c.ImageURL != "" {
			d.CoverImage = c.ImageURL
			break
		}
	}
	return d
}

package sushigo

import (
	"fmt"
	"math/rand/v2"
)

// Card is a Sushi Go card type. The zero value None stands for an
// empty hand slot and never appears in the deck.
//
// Cardは、すしごーのカードの種類を表します。
// ゼロ値のNoneは空の手札スロットを意味し、山札には含まれません。
type Card int

const (
	None Card = iota
	Tempura
	Sashimi
	Dumpling
	Maki1
	Maki2
	Maki3
	Pudding
	SalmonNigiri
	SquidNigiri
	EggNigiri
	Wasabi
)

// NumCardTypes includes None.
const NumCardTypes = 12

var cardNames = map[Card]string{
	None:         "none",
	Tempura:      "tempura",
	Sashimi:      "sashimi",
	Dumpling:     "dumpling",
	Maki1:        "maki_1",
	Maki2:        "maki_2",
	Maki3:        "maki_3",
	Pudding:      "pudding",
	SalmonNigiri: "nigiri_salmon",
	SquidNigiri:  "nigiri_squid",
	EggNigiri:    "nigiri_egg",
	Wasabi:       "wasabi",
}

func (c Card) String() string {
	name, ok := cardNames[c]
	if !ok {
		return fmt.Sprintf("unknown(%d)", int(c))
	}
	return name
}

// IsNigiri reports whether the card is any of the three nigiri.
func (c Card) IsNigiri() bool {
	return c == SalmonNigiri || c == SquidNigiri || c == EggNigiri
}

// NigiriValue returns the base value of a nigiri, and 0 for non-nigiri.
func (c Card) NigiriValue() int {
	switch c {
	case SalmonNigiri:
		return 3
	case SquidNigiri:
		return 2
	case EggNigiri:
		return 1
	default:
		return 0
	}
}

// MakiIcons returns the number of maki icons printed on the card.
func (c Card) MakiIcons() int {
	switch c {
	case Maki1:
		return 1
	case Maki2:
		return 2
	case Maki3:
		return 3
	default:
		return 0
	}
}

// DeckComposition is the number of copies of each card in the deck.
//
// DeckCompositionは、山札に含まれる各カードの枚数です。
var DeckComposition = map[Card]int{
	Tempura:      14,
	Sashimi:      14,
	Dumpling:     14,
	Maki1:        6,
	Maki2:        12,
	Maki3:        8,
	Pudding:      10,
	SalmonNigiri: 10,
	SquidNigiri:  5,
	EggNigiri:    5,
	Wasabi:       6,
}

// DeckSize is the total number of cards in a full deck.
const DeckSize = 104

// NewDeck builds a full unshuffled deck.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for c := Tempura; c <= Wasabi; c++ {
		n := DeckComposition[c]
		for i := 0; i < n; i++ {
			deck = append(deck, c)
		}
	}
	return deck
}

// NewShuffledDeck builds a full deck shuffled by rng.
func NewShuffledDeck(rng *rand.Rand) []Card {
	deck := NewDeck()
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}

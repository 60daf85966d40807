package storage

import (
	"github.com/shopspring/decimal"

	"incassi/internal/core"
)

type seedClient struct {
	id, name, start, amount string
}

var defaultRoster = []seedClient{
	{"1", "Amós Silva De Oliveira", "2025-02", "450"},
	{"2", "S.s Laboratorio De Protese Ltda", "2025-01", "1200"},
	{"3", "Rafael Rodrigues Silva", "2024-01", "350"},
	{"4", "Emptech Máquinas De Manutenção Eireli", "2024-11", "2500"},
	{"5", "Marcio Pereira Nishikawara", "2025-01", "600"},
	{"6", "Angelita Avanci De Oliveira", "2025-12", "450"},
	{"7", "Octavio Vieira Silva", "2025-01", "850"},
}

// DefaultRoster returns the clients written on first use of an empty store.
func DefaultRoster() []core.Client {
	out := make([]core.Client, 0, len(defaultRoster))
	for _, s := range defaultRoster {
		start, err := core.ParseYearMonth(s.start)
		if err != nil {
			panic(err)
		}
		out = append(out, core.NewClient(s.id, s.name, start, decimal.RequireFromString(s.amount)))
	}
	return out
}

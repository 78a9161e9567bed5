package items

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/angelmondragon/grovetrace/pkg/redis"
)

// barcodeDigits is the width of traceability barcodes issued without a sequence.
const barcodeDigits = 16

// CodeGenerator hands out unique item codes.
type CodeGenerator interface {
	Next(ctx context.Context) (string, error)
}

// SequenceCodeGenerator issues <prefix><zero padded counter> codes from a shared sequence.
type SequenceCodeGenerator struct {
	store  redis.SequenceStore
	prefix string
	digits int
}

func NewSequenceCodeGenerator(store redis.SequenceStore, prefix string, digits int) (*SequenceCodeGenerator, error) {
	if store == nil {
		return nil, errors.New("sequence store required")
	}
	if digits <= 0 {
		return nil, fmt.Errorf("digits must be positive, got %d", digits)
	}
	return &SequenceCodeGenerator{
		store:  store,
		prefix: strings.TrimSpace(prefix),
		digits: digits,
	}, nil
}

func (g *SequenceCodeGenerator) Next(ctx context.Context) (string, error) {
	n, err := g.store.NextSequence(ctx, g.sequenceName())
	if err != nil {
		return "", fmt.Errorf("next item code sequence: %w", err)
	}
	return fmt.Sprintf("%s%0*d", g.prefix, g.digits, n), nil
}

// SyncFloor moves the sequence past the highest code already stored, so a
// Redis restart without persistence cannot reissue codes. Stores that cannot
// be seeded are left alone.
func (g *SequenceCodeGenerator) SyncFloor(ctx context.Context, repo Repository) (int64, error) {
	seeder, ok := g.store.(redis.SequenceSeeder)
	if !ok {
		return 0, nil
	}
	highest, err := repo.MaxCode(ctx, g.prefix, len(g.prefix)+g.digits)
	if err != nil {
		return 0, fmt.Errorf("highest issued item code: %w", err)
	}
	var floor int64
	if highest != "" {
		floor, err = strconv.ParseInt(strings.TrimPrefix(highest, g.prefix), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse item code %q: %w", highest, err)
		}
	}
	return seeder.EnsureSequenceFloor(ctx, g.sequenceName(), floor)
}

func (g *SequenceCodeGenerator) sequenceName() string {
	return "item_code:" + g.prefix
}

// RandomCodeGenerator issues random 16 digit barcodes.
type RandomCodeGenerator struct{}

func (RandomCodeGenerator) Next(context.Context) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(barcodeDigits), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("random item code: %w", err)
	}
	return fmt.Sprintf("%0*s", barcodeDigits, n.String()), nil
}

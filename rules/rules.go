// Package rules installs the nftables rules feeding packets into an NFLOG
// group. Everything lives in a dedicated table so that removing the table
// cleans up after us without touching anybody else's rules.
package rules

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"sigs.k8s.io/knftables"
)

var logger = slog.New(slog.DiscardHandler)

// newInterface is swapped by tests so that no actual nft binary is needed.
var newInterface = knftables.New

// Rule returns the textual nftables rule logging matching packets to the
// configured group.
func (c Config) Rule() string {
	parts := []string{}
	if c.Match != "" {
		parts = append(parts, c.Match)
	}

	parts = append(parts, "log", "group", strconv.FormatUint(uint64(c.Group), 10))

	if c.Prefix != "" {
		parts = append(parts, "prefix", strconv.Quote(c.Prefix))
	}
	if c.SnapLen != 0 {
		parts = append(parts, "snaplen", strconv.FormatUint(uint64(c.SnapLen), 10))
	}
	if c.QueueThreshold != 0 {
		parts = append(parts, "queue-threshold", strconv.FormatUint(uint64(c.QueueThreshold), 10))
	}

	return strings.Join(parts, " ")
}

// Installed is a set of rules added through Install.
type Installed struct {
	nft    knftables.Interface
	config Config
}

// Install creates the table, a base chain hooked as configured and the rule
// logging packets to the group in a single transaction. A previous version
// of the chain is flushed.
func Install(ctx context.Context, c Config) (*Installed, error) {
	if c.Log {
		logger = slog.Default().With("t", "rules")
	} else {
		logger = slog.New(slog.DiscardHandler)
	}

	nft, err := newInterface(c.Family, c.Table)
	if err != nil {
		return nil, fmt.Errorf("error creating the nftables interface: %w", err)
	}

	tx := nft.NewTransaction()
	tx.Add(&knftables.Table{
		Comment: knftables.PtrTo("NFLOG rules"),
	})
	tx.Add(&knftables.Chain{
		Name:     c.Chain,
		Type:     knftables.PtrTo(knftables.FilterType),
		Hook:     knftables.PtrTo(c.Hook),
		Priority: knftables.PtrTo(knftables.FilterPriority),
	})
	tx.Flush(&knftables.Chain{
		Name: c.Chain,
	})
	tx.Add(&knftables.Rule{
		Chain: c.Chain,
		Rule:  c.Rule(),
	})

	if err := nft.Run(ctx, tx); err != nil {
		return nil, fmt.Errorf("error installing the rules: %w", err)
	}

	logger.Info("installed nflog rule", "family", c.Family, "table", c.Table, "chain", c.Chain, "rule", c.Rule())

	return &Installed{nft: nft, config: c}, nil
}

// Rules lists the rules currently present in the chain.
func (i *Installed) Rules(ctx context.Context) ([]*knftables.Rule, error) {
	return i.nft.ListRules(ctx, i.config.Chain)
}

// Remove deletes the whole table.
func (i *Installed) Remove(ctx context.Context) error {
	tx := i.nft.NewTransaction()
	tx.Delete(&knftables.Table{})

	if err := i.nft.Run(ctx, tx); err != nil {
		return fmt.Errorf("error removing table %q: %w", i.config.Table, err)
	}

	logger.Info("removed nflog rules", "family", i.config.Family, "table", i.config.Table)

	return nil
}

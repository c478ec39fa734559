package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kevin07696/valueio-gateway/internal/domain"
	"github.com/kevin07696/valueio-gateway/internal/domain/ports"
)

// fixtures seeds a store for local development and demos
type fixtures struct {
	Orders        []domain.Order        `json:"orders"`
	Subscriptions []domain.Subscription `json:"subscriptions"`
	// Vaults maps a customer id to its card ids in vault order
	Vaults map[string][]string `json:"vaults"`
	// Meta maps an order id to meta entries, e.g. a pinned valueio_vault_id
	Meta map[string]map[string]string `json:"meta"`
}

func loadFixtures(ctx context.Context, s store, vaults ports.VaultRepository, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fixtures: %w", err)
	}

	var f fixtures
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse fixtures %s: %w", path, err)
	}

	for i := range f.Orders {
		if err := s.SaveOrder(ctx, &f.Orders[i]); err != nil {
			return fmt.Errorf("save order %s: %w", f.Orders[i].ID, err)
		}
	}
	for i := range f.Subscriptions {
		if err := s.SaveSubscription(ctx, &f.Subscriptions[i]); err != nil {
			return fmt.Errorf("save subscription %s: %w", f.Subscriptions[i].ID, err)
		}
	}
	for orderID, entries := range f.Meta {
		for key, value := range entries {
			if err := s.SetMeta(ctx, orderID, key, value); err != nil {
				return fmt.Errorf("set meta %s on order %s: %w", key, orderID, err)
			}
		}
	}
	for customerID, cardIDs := range f.Vaults {
		for _, cardID := range cardIDs {
			if _, err := vaults.AppendVaultID(ctx, customerID, cardID); err != nil {
				return fmt.Errorf("vault card for customer %s: %w", customerID, err)
			}
		}
	}

	return nil
}

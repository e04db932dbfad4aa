package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/marinda/internal/auth"
	"github.com/dukerupert/marinda/internal/config"
	"github.com/dukerupert/marinda/internal/store"
	"github.com/dukerupert/marinda/internal/testutil"
)

func TestSeedAndMintToken(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	ctx := context.Background()
	cfg := config.Config{JWTSecret: "0123456789abcdef-secret", JWTIssuer: "marinda", TokenTTL: time.Hour}

	var out bytes.Buffer
	if err := dispatch(ctx, db, cfg, []string{"family", "add", "-name", "Smiths"}, &out); err != nil {
		t.Fatalf("family add: %v", err)
	}
	if !strings.Contains(out.String(), `family 1 "Smiths" created`) {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	if err := dispatch(ctx, db, cfg, []string{"member", "add", "-family", "1", "-name", "Ana", "-role", "MOM"}, &out); err != nil {
		t.Fatalf("member add: %v", err)
	}

	out.Reset()
	if err := dispatch(ctx, db, cfg, []string{"member", "pin", "-id", "1", "-pin", "1234"}, &out); err != nil {
		t.Fatalf("member pin: %v", err)
	}
	ok, err := store.NewFamilyMemberStore(db).VerifyPIN(ctx, 1, "1234")
	if err != nil || !ok {
		t.Errorf("VerifyPIN = %v, %v", ok, err)
	}

	out.Reset()
	if err := dispatch(ctx, db, cfg, []string{"token", "-member", "1"}, &out); err != nil {
		t.Fatalf("token: %v", err)
	}
	claims, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL).Parse(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("parse minted token: %v", err)
	}
	if claims.MemberID != 1 || claims.FamilyID != 1 {
		t.Errorf("claims = %+v", claims)
	}
}

func TestDispatchErrors(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	ctx := context.Background()
	cfg := config.Config{JWTSecret: "0123456789abcdef-secret", JWTIssuer: "marinda", TokenTTL: time.Hour}

	tests := [][]string{
		{"member", "add", "-family", "1", "-name", "Ana", "-role", "GRANDMA"},
		{"member", "pin", "-id", "1", "-pin", "12"},
		{"token", "-member", "42"},
		{"family", "remove"},
	}
	for _, args := range tests {
		if err := dispatch(ctx, db, cfg, args, &bytes.Buffer{}); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestVAPIDKeys(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"vapid-keys"}, &out); err != nil {
		t.Fatalf("vapid-keys: %v", err)
	}
	if !strings.Contains(out.String(), "MARINDA_VAPID_PUBLIC_KEY=") || !strings.Contains(out.String(), "MARINDA_VAPID_PRIVATE_KEY=") {
		t.Errorf("output = %q", out.String())
	}
}

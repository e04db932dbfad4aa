// Command marinda-admin seeds families and members for local development
// and mints bearer tokens for them.
//
// Usage:
//
//	marinda-admin family add -name Smiths
//	marinda-admin member add -family 1 -name Ana -role MOM
//	marinda-admin member list -family 1
//	marinda-admin member pin -id 2 -pin 1234
//	marinda-admin member pin -id 2 -clear
//	marinda-admin token -member 2
//	marinda-admin vapid-keys
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukerupert/marinda/internal/auth"
	"github.com/dukerupert/marinda/internal/config"
	"github.com/dukerupert/marinda/internal/database"
	"github.com/dukerupert/marinda/internal/model"
	"github.com/dukerupert/marinda/internal/push"
	"github.com/dukerupert/marinda/internal/store"
)

var errUsage = errors.New("usage: marinda-admin <family add|member add|member list|member pin|token|vapid-keys> [flags]")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "marinda-admin: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	// Key generation needs neither configuration nor a database.
	if args[0] == "vapid-keys" {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "MARINDA_VAPID_PUBLIC_KEY=%s\nMARINDA_VAPID_PRIVATE_KEY=%s\n", pub, priv)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	return dispatch(ctx, db, cfg, args, out)
}

func dispatch(ctx context.Context, db *sql.DB, cfg config.Config, args []string, out io.Writer) error {
	switch {
	case len(args) >= 2 && args[0] == "family" && args[1] == "add":
		return familyAdd(ctx, store.NewFamilyStore(db), args[2:], out)
	case len(args) >= 2 && args[0] == "member" && args[1] == "add":
		return memberAdd(ctx, store.NewFamilyMemberStore(db), args[2:], out)
	case len(args) >= 2 && args[0] == "member" && args[1] == "list":
		return memberList(ctx, store.NewFamilyMemberStore(db), args[2:], out)
	case len(args) >= 2 && args[0] == "member" && args[1] == "pin":
		return memberPIN(ctx, store.NewFamilyMemberStore(db), args[2:], out)
	case args[0] == "token":
		tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
		return mintToken(ctx, store.NewFamilyMemberStore(db), tokens, args[1:], out)
	}
	return errUsage
}

func familyAdd(ctx context.Context, families *store.FamilyStore, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("family add", flag.ContinueOnError)
	fs.SetOutput(out)
	name := fs.String("name", "", "family name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return errors.New("-name is required")
	}

	f, err := families.Create(ctx, *name)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "family %d %q created\n", f.ID, f.Name)
	return nil
}

func memberAdd(ctx context.Context, members *store.FamilyMemberStore, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("member add", flag.ContinueOnError)
	fs.SetOutput(out)
	familyID := fs.Int64("family", 0, "family id")
	name := fs.String("name", "", "member name")
	roleName := fs.String("role", "", "MOM, DAD, ADULT, TEEN or CHILD")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *familyID == 0 || *name == "" {
		return errors.New("-family and -name are required")
	}
	role, err := model.ParseRole(*roleName)
	if err != nil {
		return err
	}

	m, err := members.Create(ctx, *familyID, *name, role)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "member %d %q (%s) added to family %d\n", m.ID, m.Name, m.Role, m.FamilyID)
	return nil
}

func memberList(ctx context.Context, members *store.FamilyMemberStore, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("member list", flag.ContinueOnError)
	fs.SetOutput(out)
	familyID := fs.Int64("family", 0, "family id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *familyID == 0 {
		return errors.New("-family is required")
	}

	list, err := members.List(ctx, *familyID)
	if err != nil {
		return err
	}
	for _, m := range list {
		fmt.Fprintf(out, "%d\t%s\t%s\t%d\n", m.ID, m.Name, m.Role, m.Points)
	}
	return nil
}

func memberPIN(ctx context.Context, members *store.FamilyMemberStore, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("member pin", flag.ContinueOnError)
	fs.SetOutput(out)
	id := fs.Int64("id", 0, "member id")
	pin := fs.String("pin", "", "new 4-digit PIN")
	clearPIN := fs.Bool("clear", false, "remove the PIN")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == 0 {
		return errors.New("-id is required")
	}

	if *clearPIN {
		if err := members.ClearPIN(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintf(out, "PIN cleared for member %d\n", *id)
		return nil
	}
	if len(*pin) != 4 {
		return errors.New("-pin must be 4 digits")
	}
	for _, c := range *pin {
		if c < '0' || c > '9' {
			return errors.New("-pin must be 4 digits")
		}
	}
	if err := members.SetPIN(ctx, *id, *pin); err != nil {
		return err
	}
	fmt.Fprintf(out, "PIN set for member %d\n", *id)
	return nil
}

func mintToken(ctx context.Context, members *store.FamilyMemberStore, tokens *auth.TokenService, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(out)
	memberID := fs.Int64("member", 0, "member id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *memberID == 0 {
		return errors.New("-member is required")
	}

	m, err := members.GetByID(ctx, *memberID)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("member %d not found", *memberID)
	}
	token, err := tokens.Issue(m.ID, m.FamilyID)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}

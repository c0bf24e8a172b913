package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/meesalavenugopal/novacare247/internal/db"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	p := plan{}
	var randSeed uint64

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed branches, doctors, weekly slot templates and training modules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()
			dsn := os.Getenv("DATABASE_URL")
			if dsn == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}
			if p.Branches < 0 || p.DoctorsPerBranch < 0 {
				return fmt.Errorf("counts must not be negative")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			pool, err := db.ConnectPostgres(ctx, dsn)
			if err != nil {
				return err
			}
			defer pool.Close()

			if randSeed == 0 {
				randSeed = uint64(time.Now().UnixNano())
			}
			out, err := seed(ctx, pool, gofakeit.New(randSeed), p)
			if err != nil {
				return err
			}
			cmd.Printf("seeded %d branches, %d doctors, %d slot templates, %d training modules (seed %d)\n",
				out.Branches, out.Doctors, out.Templates, out.Modules, randSeed)
			return nil
		},
	}
	cmd.Flags().IntVar(&p.Branches, "branches", 3, "number of branches")
	cmd.Flags().IntVar(&p.DoctorsPerBranch, "doctors-per-branch", 4, "doctors created per branch")
	cmd.Flags().StringVar(&p.Password, "password", "NovaCare@2024", "login password for seeded doctors")
	cmd.Flags().Uint64Var(&randSeed, "seed", 0, "random seed (0 picks one from the clock)")
	return cmd
}

// Command chainverify audits fiscal hash chains offline, straight from the
// database. It exits 1 when any verified chain is broken.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	fiscalapp "github.com/garage-erp/backend/internal/application/fiscal"
	"github.com/garage-erp/backend/internal/domain/fiscal"
	"github.com/garage-erp/backend/internal/infrastructure/config"
	"github.com/garage-erp/backend/internal/infrastructure/logger"
	"github.com/garage-erp/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// errChainBroken makes main exit 1 after the report was printed
var errChainBroken = errors.New("fiscal chain integrity check failed")

var (
	logLevel   string
	jsonOutput bool
	companyArg string
	chainArg   string
)

var rootCmd = &cobra.Command{
	Use:           "chainverify",
	Short:         "Verify fiscal hash chains",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var verifyCmd = &cobra.Command{
	Use:     "verify",
	Short:   "Verify one chain of one company",
	Example: `  chainverify verify --company 7f1c5a8e-2f0e-4be4-9d6d-2c1f0b7a9e11 --type invoice`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		companyID, err := uuid.Parse(companyArg)
		if err != nil {
			return fmt.Errorf("--company must be a UUID: %w", err)
		}
		chainType, err := fiscal.ParseChainType(chainArg)
		if err != nil {
			return err
		}
		return withService(cmd.Context(), func(ctx context.Context, svc *fiscalapp.VerificationService) error {
			result, err := svc.VerifyChain(ctx, companyID, chainType)
			if err != nil {
				return err
			}
			return report(cmd, []fiscalapp.ChainVerification{*result})
		})
	},
}

var verifyAllCmd = &cobra.Command{
	Use:   "verify-all",
	Short: "Verify every chain of every company",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *fiscalapp.VerificationService) error {
			results, err := svc.VerifyAll(ctx)
			if err != nil {
				return err
			}
			return report(cmd, results)
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")

	verifyCmd.Flags().StringVar(&companyArg, "company", "", "Company ID")
	verifyCmd.Flags().StringVar(&chainArg, "type", "", "Chain type: invoice, credit_note or journal_entry")
	_ = verifyCmd.MarkFlagRequired("company")
	_ = verifyCmd.MarkFlagRequired("type")

	rootCmd.AddCommand(verifyCmd, verifyAllCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errChainBroken) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func withService(ctx context.Context, fn func(ctx context.Context, svc *fiscalapp.VerificationService) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.New(&logger.Config{
		Level:  logLevel,
		Format: "console",
		Output: "stderr",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = log.Sync()
	}()

	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{
		Logger:   log,
		LogLevel: gormlogger.Error,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("Error closing database", zap.Error(err))
		}
	}()

	svc := fiscalapp.NewVerificationService(persistence.NewGormFiscalChainRepository(db.DB), nil, log)
	return fn(ctx, svc)
}

func report(cmd *cobra.Command, results []fiscalapp.ChainVerification) error {
	out := cmd.OutOrStdout()
	broken := 0
	for _, r := range results {
		if !r.Valid {
			broken++
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			status := "OK"
			if !r.Valid {
				status = fmt.Sprintf("BROKEN at %d (%s)", r.BrokenAt, r.Reason)
			}
			fmt.Fprintf(out, "%s  %-13s  entries=%-6d  %s\n", r.CompanyID, r.ChainType, r.Length, status)
		}
		fmt.Fprintf(out, "%d chains verified, %d broken\n", len(results), broken)
	}

	if broken > 0 {
		return errChainBroken
	}
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/jmerrifield20/CreditChain/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL string
	cfgFile   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "creditchain",
	Short: "CreditChain CLI",
	Long: `creditchain is the command-line interface for a CreditChain deployment.

It scores loan applications, inspects the four block chains, and runs
integrity verification against a ledgerd instance.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.creditchain")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.creditchain/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "ledgerd base URL (default http://localhost:8080)")

	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(versionCmd)
}

// ── predict ──────────────────────────────────────────────────────────────────

var (
	predictUserID int64
	predictIncome float64
	predictDebt   float64
	predictAmount float64
	predictFormat string
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Score a loan application and seal the result on-chain",
	Long: `Predict submits a loan application for scoring. The server seals the
assessment into the credit-score chain and writes a matching audit block
before answering:

  creditchain predict --user 42 --income 6500 --debt 1200 --amount 30000`,
	RunE: runPredict,
}

func init() {
	predictCmd.Flags().Int64Var(&predictUserID, "user", 0, "Applicant user ID")
	predictCmd.Flags().Float64Var(&predictIncome, "income", 0, "Monthly income")
	predictCmd.Flags().Float64Var(&predictDebt, "debt", 0, "Existing debt")
	predictCmd.Flags().Float64Var(&predictAmount, "amount", 0, "Requested loan amount")
	predictCmd.Flags().StringVar(&predictFormat, "format", "text", "Output format: text or json")
	predictCmd.MarkFlagRequired("user")   //nolint:errcheck
	predictCmd.MarkFlagRequired("income") //nolint:errcheck
	predictCmd.MarkFlagRequired("amount") //nolint:errcheck
}

func runPredict(cmd *cobra.Command, args []string) error {
	c := client.MustNew(serverURL)

	result, err := c.Predict(context.Background(), client.PredictionRequest{
		UserID:          predictUserID,
		MonthlyIncome:   predictIncome,
		ExistingDebt:    predictDebt,
		RequestedAmount: predictAmount,
	})
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}

	if predictFormat == "json" {
		return printJSON(result)
	}

	p := result.Prediction
	fmt.Printf("Credit Score:   %d\n", p.CreditScore)
	fmt.Printf("Decision:       %s (%s)\n", p.Decision, p.RiskCategory)
	fmt.Printf("Max Loan:       %d\n", p.MaxLoanAmount)
	fmt.Printf("Interest Rate:  %.2f%%\n", p.RecommendedInterestRate)
	fmt.Printf("Confidence:     %.2f\n", p.Confidence)
	if len(p.RiskFactors) > 0 {
		fmt.Printf("Risk Factors:   %v\n", p.RiskFactors)
	}
	fmt.Printf("Block:          %s\n", result.BlockchainHash)
	fmt.Printf("Audit Block:    %s\n", result.AuditBlockHash)
	return nil
}

// ── verify ───────────────────────────────────────────────────────────────────

var verifyFormat string

var allKinds = []string{"credit_score", "transaction", "model_version", "prediction_audit"}

var verifyCmd = &cobra.Command{
	Use:   "verify [kind] ...",
	Short: "Run an integrity pass over one or more block chains",
	Long: `Verify recomputes every hash in the named chains and reports the
integrity score. With no arguments all four chains are verified:

  creditchain verify
  creditchain verify credit_score transaction`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyFormat, "format", "text", "Output format: text or json")
}

func runVerify(cmd *cobra.Command, args []string) error {
	kinds := args
	if len(kinds) == 0 {
		kinds = allKinds
	}

	c := client.MustNew(serverURL)
	ctx := context.Background()

	results := make([]*client.VerifyResult, 0, len(kinds))
	for _, kind := range kinds {
		rec, err := c.Verify(ctx, kind)
		if err != nil {
			return fmt.Errorf("verify %s: %w", kind, err)
		}
		results = append(results, rec)
	}

	if verifyFormat == "json" {
		return printJSON(results)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHAIN\tVALID\tBLOCKS\tVERIFIED\tINTEGRITY")
	failed := false
	for _, rec := range results {
		fmt.Fprintf(w, "%s\t%v\t%d\t%d\t%.4f\n",
			rec.Kind, rec.Valid, rec.TotalBlocks, rec.VerifiedBlocks, rec.IntegrityScore)
		if !rec.Valid {
			failed = true
		}
	}
	w.Flush()

	if failed {
		return fmt.Errorf("one or more chains failed verification")
	}
	return nil
}

// ── history ──────────────────────────────────────────────────────────────────

var (
	historyUserID int64
	historyFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show a user's on-chain credit score history, newest first",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().Int64Var(&historyUserID, "user", 0, "User ID")
	historyCmd.Flags().StringVar(&historyFormat, "format", "text", "Output format: text or json")
	historyCmd.MarkFlagRequired("user") //nolint:errcheck
}

func runHistory(cmd *cobra.Command, args []string) error {
	c := client.MustNew(serverURL)

	history, err := c.UserHistory(context.Background(), historyUserID)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}

	if historyFormat == "json" {
		return printJSON(history)
	}

	if len(history) == 0 {
		fmt.Printf("no credit records for user %d\n", historyUserID)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tMODEL\tCONFIDENCE\tTIMESTAMP\tBLOCK")
	for _, e := range history {
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%s\t%s\n",
			e.CreditScore, e.ModelVersion, e.PredictionConfidence, e.Timestamp, short(e.BlockHash))
	}
	return w.Flush()
}

// ── stats ────────────────────────────────────────────────────────────────────

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate statistics across all block chains",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.MustNew(serverURL)
		stats, err := c.Statistics(context.Background())
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}
		return printJSON(stats)
	},
}

// ── health ───────────────────────────────────────────────────────────────────

var healthFormat string

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Verify every chain and show the aggregate health report",
	RunE:  runHealth,
}

func init() {
	healthCmd.Flags().StringVar(&healthFormat, "format", "text", "Output format: text or json")
}

func runHealth(cmd *cobra.Command, args []string) error {
	c := client.MustNew(serverURL)

	report, err := c.Health(context.Background())
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}

	if healthFormat == "json" {
		return printJSON(report)
	}

	fmt.Printf("Overall: %s\n\n", report.OverallStatus)

	kinds := make([]string, 0, len(report.Chains))
	for kind := range report.Chains {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHAIN\tSTATUS\tBLOCKS\tINTEGRITY")
	for _, kind := range kinds {
		ch := report.Chains[kind]
		fmt.Fprintf(w, "%s\t%s\t%d\t%.4f\n", kind, ch.Status, ch.TotalBlocks, ch.IntegrityScore)
	}
	w.Flush()

	if report.OverallStatus != "healthy" {
		return fmt.Errorf("system is %s", report.OverallStatus)
	}
	return nil
}

// ── train ────────────────────────────────────────────────────────────────────

var (
	trainVersion  string
	trainAccuracy float64
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Register a model version on the model chain",
	Long: `Train seals a model deployment record onto the model-version chain.
Model training itself happens offline; this records the deployment:

  creditchain train --model-version rule_based_v2 --accuracy 0.87`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.MustNew(serverURL)
		res, err := c.Train(context.Background(), trainVersion, trainAccuracy)
		if err != nil {
			return fmt.Errorf("train: %w", err)
		}
		fmt.Printf("registered %s\nblock: %s\n", trainVersion, res.BlockHash)
		return nil
	},
}

func init() {
	trainCmd.Flags().StringVar(&trainVersion, "model-version", "", "Model version identifier (server default when empty)")
	trainCmd.Flags().Float64Var(&trainAccuracy, "accuracy", 0, "Model accuracy in (0,1] (server default when 0)")
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("creditchain %s\n", version)
	},
}

// ── helpers ──────────────────────────────────────────────────────────────────

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// short truncates a hash for table display.
func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

// Package client is the CreditChain Go SDK.
//
// It covers everything a service needs to work with a CreditChain deployment:
// scoring loan applications, appending records to the four block chains, and
// checking chain integrity — all against the ledgerd HTTP API.
//
// # Scoring a loan application (most common case)
//
// Predict scores the application server-side and seals the result into the
// credit-score and prediction-audit chains before returning:
//
//	c, err := client.New("http://localhost:8080")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := c.Predict(ctx, client.PredictionRequest{
//	    UserID:          42,
//	    MonthlyIncome:   6500,
//	    ExistingDebt:    1200,
//	    RequestedAmount: 30000,
//	})
//	fmt.Println(result.Prediction.Decision, result.BlockchainHash)
//
// # Appending records directly
//
// Each chain has a typed append method. The server mines and links the block;
// the returned AppendResult carries its hash:
//
//	res, err := c.AppendTransaction(ctx, client.TransactionRecord{
//	    UserID:          42,
//	    TransactionType: "loan_payment",
//	    Amount:          1250,
//	})
//	fmt.Println(res.BlockHash, res.TransactionHash)
//
// # Verifying chain integrity
//
// Verify recomputes every hash in a chain server-side and reports the
// integrity score. Add WithVerifyCacheTTL when polling from a dashboard:
//
//	c, _ := client.New(baseURL, client.WithVerifyCacheTTL(30*time.Second))
//	rec, err := c.Verify(ctx, "credit_score")
//	if !rec.Valid {
//	    log.Printf("chain degraded: %.2f", rec.IntegrityScore)
//	}
//
// # History and aggregate views
//
//	history, _ := c.UserHistory(ctx, 42)       // newest first
//	stats, _ := c.Statistics(ctx)              // all-chain statistics
//	health, _ := c.Health(ctx)                 // per-chain health report
package client

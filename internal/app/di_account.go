package app

import (
	"fmt"

	accountHTTP "github.com/allisson/ledger/internal/account/http"
	accountRepository "github.com/allisson/ledger/internal/account/repository"
	accountService "github.com/allisson/ledger/internal/account/service"
	accountUseCase "github.com/allisson/ledger/internal/account/usecase"
)

// AccountRepository returns the account repository based on database driver.
func (c *Container) AccountRepository() (accountUseCase.AccountRepository, error) {
	var err error
	c.accountRepoInit.Do(func() {
		c.accountRepo, err = c.initAccountRepository()
		if err != nil {
			c.initErrors["accountRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["accountRepo"]; exists {
		return nil, storedErr
	}
	return c.accountRepo, nil
}

// TransactionRepository returns the transaction repository based on database driver.
func (c *Container) TransactionRepository() (accountUseCase.TransactionRepository, error) {
	var err error
	c.transactionRepoInit.Do(func() {
		c.transactionRepo, err = c.initTransactionRepository()
		if err != nil {
			c.initErrors["transactionRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["transactionRepo"]; exists {
		return nil, storedErr
	}
	return c.transactionRepo, nil
}

// AccountUseCase returns the account use case wrapped with conflict retries and metrics.
func (c *Container) AccountUseCase() (accountUseCase.AccountUseCase, error) {
	var err error
	c.accountUseCaseInit.Do(func() {
		c.accountUseCase, err = c.initAccountUseCase()
		if err != nil {
			c.initErrors["accountUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["accountUseCase"]; exists {
		return nil, storedErr
	}
	return c.accountUseCase, nil
}

// TransactionUseCase returns the transaction use case wrapped with conflict retries and metrics.
func (c *Container) TransactionUseCase() (accountUseCase.TransactionUseCase, error) {
	var err error
	c.transactionUseCaseInit.Do(func() {
		c.transactionUseCase, err = c.initTransactionUseCase()
		if err != nil {
			c.initErrors["transactionUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["transactionUseCase"]; exists {
		return nil, storedErr
	}
	return c.transactionUseCase, nil
}

// InterestUseCase returns the interest accrual use case.
func (c *Container) InterestUseCase() (accountUseCase.InterestUseCase, error) {
	var err error
	c.interestUseCaseInit.Do(func() {
		c.interestUseCase, err = c.initInterestUseCase()
		if err != nil {
			c.initErrors["interestUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["interestUseCase"]; exists {
		return nil, storedErr
	}
	return c.interestUseCase, nil
}

// InterestJob returns the periodic interest accrual job, or nil when accrual is disabled.
func (c *Container) InterestJob() (*accountUseCase.InterestJob, error) {
	var err error
	c.interestJobInit.Do(func() {
		c.interestJob, err = c.initInterestJob()
		if err != nil {
			c.initErrors["interestJob"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["interestJob"]; exists {
		return nil, storedErr
	}
	return c.interestJob, nil
}

// AccountHandler returns the HTTP handler for account operations.
func (c *Container) AccountHandler() (*accountHTTP.AccountHandler, error) {
	var err error
	c.accountHandlerInit.Do(func() {
		c.accountHandler, err = c.initAccountHandler()
		if err != nil {
			c.initErrors["accountHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["accountHandler"]; exists {
		return nil, storedErr
	}
	return c.accountHandler, nil
}

// TransactionHandler returns the HTTP handler for transactions and transfers.
func (c *Container) TransactionHandler() (*accountHTTP.TransactionHandler, error) {
	var err error
	c.transactionHandlerInit.Do(func() {
		c.transactionHandler, err = c.initTransactionHandler()
		if err != nil {
			c.initErrors["transactionHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["transactionHandler"]; exists {
		return nil, storedErr
	}
	return c.transactionHandler, nil
}

// initAccountRepository creates the account repository based on the database driver.
func (c *Container) initAccountRepository() (accountUseCase.AccountRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for account repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return accountRepository.NewPostgreSQLAccountRepository(db), nil
	case "mysql":
		return accountRepository.NewMySQLAccountRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initTransactionRepository creates the transaction repository based on the database driver.
func (c *Container) initTransactionRepository() (accountUseCase.TransactionRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for transaction repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return accountRepository.NewPostgreSQLTransactionRepository(db), nil
	case "mysql":
		return accountRepository.NewMySQLTransactionRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// ledgerDeps groups what every account use case needs.
type ledgerDeps struct {
	accounts     accountUseCase.AccountRepository
	transactions accountUseCase.TransactionRepository
}

func (c *Container) ledgerDeps() (*ledgerDeps, error) {
	accounts, err := c.AccountRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get account repository: %w", err)
	}
	transactions, err := c.TransactionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction repository: %w", err)
	}
	return &ledgerDeps{accounts: accounts, transactions: transactions}, nil
}

func (c *Container) commandValidator() accountUseCase.CommandValidator {
	return accountUseCase.NewCommandValidator(
		accountService.NewCurrencyService(c.config.SupportedCurrencies),
		accountService.NewOwnerVerifier(),
	)
}

// initAccountUseCase creates the account use case.
func (c *Container) initAccountUseCase() (accountUseCase.AccountUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for account use case: %w", err)
	}
	deps, err := c.ledgerDeps()
	if err != nil {
		return nil, fmt.Errorf("account use case: %w", err)
	}
	appender, err := c.EventAppender()
	if err != nil {
		return nil, fmt.Errorf("failed to get event appender for account use case: %w", err)
	}

	baseUseCase := accountUseCase.NewAccountUseCase(
		txManager,
		deps.accounts,
		deps.transactions,
		appender,
		c.commandValidator(),
	)
	useCase := accountUseCase.NewAccountUseCaseWithRetry(baseUseCase, c.config.ConflictRetries)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for account use case: %w", err)
		}
		return accountUseCase.NewAccountUseCaseWithMetrics(useCase, businessMetrics), nil
	}

	return useCase, nil
}

// initTransactionUseCase creates the transaction use case.
func (c *Container) initTransactionUseCase() (accountUseCase.TransactionUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for transaction use case: %w", err)
	}
	deps, err := c.ledgerDeps()
	if err != nil {
		return nil, fmt.Errorf("transaction use case: %w", err)
	}
	appender, err := c.EventAppender()
	if err != nil {
		return nil, fmt.Errorf("failed to get event appender for transaction use case: %w", err)
	}

	baseUseCase := accountUseCase.NewTransactionUseCase(
		txManager,
		deps.accounts,
		deps.transactions,
		appender,
		c.commandValidator(),
	)
	useCase := accountUseCase.NewTransactionUseCaseWithRetry(baseUseCase, c.config.ConflictRetries)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for transaction use case: %w", err)
		}
		return accountUseCase.NewTransactionUseCaseWithMetrics(useCase, businessMetrics), nil
	}

	return useCase, nil
}

// initInterestUseCase creates the interest use case.
func (c *Container) initInterestUseCase() (accountUseCase.InterestUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for interest use case: %w", err)
	}
	deps, err := c.ledgerDeps()
	if err != nil {
		return nil, fmt.Errorf("interest use case: %w", err)
	}
	appender, err := c.EventAppender()
	if err != nil {
		return nil, fmt.Errorf("failed to get event appender for interest use case: %w", err)
	}

	useCase := accountUseCase.NewInterestUseCase(
		txManager,
		deps.accounts,
		deps.transactions,
		appender,
		c.config.InterestAccrualBatchSize,
		c.Logger(),
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for interest use case: %w", err)
		}
		return accountUseCase.NewInterestUseCaseWithMetrics(useCase, businessMetrics), nil
	}

	return useCase, nil
}

func (c *Container) initInterestJob() (*accountUseCase.InterestJob, error) {
	if !c.config.InterestAccrualEnabled {
		return nil, nil
	}
	useCase, err := c.InterestUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get interest use case for interest job: %w", err)
	}
	return accountUseCase.NewInterestJob(useCase, c.config.InterestAccrualInterval, c.Logger()), nil
}

func (c *Container) initAccountHandler() (*accountHTTP.AccountHandler, error) {
	useCase, err := c.AccountUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get account use case for account handler: %w", err)
	}
	return accountHTTP.NewAccountHandler(useCase, c.Logger()), nil
}

func (c *Container) initTransactionHandler() (*accountHTTP.TransactionHandler, error) {
	useCase, err := c.TransactionUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction use case for transaction handler: %w", err)
	}
	return accountHTTP.NewTransactionHandler(useCase, c.Logger()), nil
}

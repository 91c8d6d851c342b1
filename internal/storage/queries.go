package storage

const (
	// Account queries
	GetAccountByIDQuery = `
		SELECT id, username, email, password_hash, currency, balance, version,
		       fraud_alerts, email_notifications, monthly_limit, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	GetAccountByUsernameQuery = `
		SELECT id, username, email, password_hash, currency, balance, version,
		       fraud_alerts, email_notifications, monthly_limit, created_at, updated_at
		FROM accounts
		WHERE username = $1
	`

	CreateAccountQuery = `
		INSERT INTO accounts (id, username, email, password_hash, currency)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, username, email, password_hash, currency, balance, version,
		          fraud_alerts, email_notifications, monthly_limit, created_at, updated_at
	`

	// Блокировка строки счета на время транзакции
	GetAccountBalanceForUpdateQuery = `
		SELECT balance
		FROM accounts
		WHERE id = $1
		FOR UPDATE NOWAIT
	`

	// Обновление баланса, только из-под блокировки
	UpdateAccountBalanceQuery = `
		UPDATE accounts
		SET balance = $1, version = version + 1, updated_at = now()
		WHERE id = $2
	`

	UpdateMonthlyLimitQuery = `
		UPDATE accounts
		SET monthly_limit = $1, updated_at = now()
		WHERE id = $2
	`

	// Category limit queries
	UpsertCategoryLimitQuery = `
		INSERT INTO category_limits (account_id, category, monthly_limit)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id, category)
		DO UPDATE SET monthly_limit = EXCLUDED.monthly_limit
	`

	GetCategoryLimitQuery = `
		SELECT monthly_limit
		FROM category_limits
		WHERE account_id = $1 AND category = $2
	`

	GetCategoryLimitsQuery = `
		SELECT category, monthly_limit
		FROM category_limits
		WHERE account_id = $1
		ORDER BY category
	`

	// Ledger entry queries (таблица только для дозаписи)
	CreateEntryQuery = `
		INSERT INTO ledger_entries (
			id, account_id, kind, amount, category, description, merchant,
			payment_method, occurred_at, transfer_group, counterparty,
			request_id, ai_categorized, confidence
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at
	`

	GetEntryByIDQuery = `
		SELECT id, account_id, kind, amount, category, description, merchant,
		       payment_method, occurred_at, transfer_group, counterparty,
		       COALESCE(request_id, ''), ai_categorized, confidence, created_at
		FROM ledger_entries
		WHERE id = $1
	`

	GetEntryByRequestIDQuery = `
		SELECT id, account_id, kind, amount, category, description, merchant,
		       payment_method, occurred_at, transfer_group, counterparty,
		       COALESCE(request_id, ''), ai_categorized, confidence, created_at
		FROM ledger_entries
		WHERE account_id = $1 AND request_id = $2
	`

// Aggregate queries для фрод-правил: считаются по запросу от
	// неизменяемого леджера, без отдельных счетчиков
	AvgMonthlyExpenseQuery = `
		SELECT COALESCE(AVG(monthly_total), 0), COUNT(*)
		FROM (
			SELECT date_trunc('month', occurred_at) AS month, SUM(amount) AS monthly_total
			FROM ledger_entries
			WHERE account_id = $1 AND kind = 'outflow' AND occurred_at < $2
			GROUP BY 1
		) months
	`

	CategoryExpenseTotalQuery = `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE account_id = $1 AND kind = 'outflow' AND category = $2
		  AND occurred_at >= $3 AND occurred_at <= $4
	`

	CountRecentEntriesQuery = `
		SELECT COUNT(*)
		FROM ledger_entries
		WHERE account_id = $1 AND occurred_at >= $2 AND id <> $3
	`

	CountNightEntriesQuery = `
		SELECT COUNT(*)
		FROM ledger_entries
		WHERE account_id = $1 AND occurred_at >= $2
		  AND EXTRACT(HOUR FROM occurred_at) < 6
	`

	// Fraud tag queries
	CreateFraudTagQuery = `
		INSERT INTO fraud_tags (entry_id, tag_type, severity, message)
		VALUES ($1, $2, $3, $4)
	`

	GetFraudTagsByEntriesQuery = `
		SELECT id, entry_id, tag_type, severity, message, flagged_at
		FROM fraud_tags
		WHERE entry_id = ANY($1)
		ORDER BY entry_id, flagged_at
	`

	// Alert queries
	CreateAlertQuery = `
		INSERT INTO alerts (id, account_id, entry_id, alert_type, severity, message, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING status, notified, created_at
	`

	GetAlertByIDQuery = `
		SELECT id, account_id, entry_id, alert_type, severity, message, details,
		       status, notified, notified_at, reviewed_by, reviewed_at,
		       COALESCE(notes, ''), created_at
		FROM alerts
		WHERE id = $1 AND account_id = $2
	`

	MarkAlertNotifiedQuery = `
		UPDATE alerts
		SET notified = true, notified_at = now()
		WHERE id = $1
	`

	// Ревью проходит только из pending; условие в WHERE закрывает гонку
	// двух одновременных ревью
	ReviewAlertQuery = `
		UPDATE alerts
		SET status = $1, notes = $2, reviewed_by = $3, reviewed_at = now()
		WHERE id = $4 AND account_id = $5 AND status = 'pending'
		RETURNING id, account_id, entry_id, alert_type, severity, message, details,
		          status, notified, notified_at, reviewed_by, reviewed_at,
		          COALESCE(notes, ''), created_at
	`

	AlertCountsByStatusQuery = `
		SELECT status, COUNT(*)
		FROM alerts
		WHERE account_id = $1
		GROUP BY status
	`

	AlertCountsBySeverityQuery = `
		SELECT severity, COUNT(*)
		FROM alerts
		WHERE account_id = $1
		GROUP BY severity
	`

	AlertCountsByTypeQuery = `
		SELECT alert_type, COUNT(*)
		FROM alerts
		WHERE account_id = $1
		GROUP BY alert_type
	`

	RecentAlertsQuery = `
		SELECT id, account_id, entry_id, alert_type, severity, message, details,
		       status, notified, notified_at, reviewed_by, reviewed_at,
		       COALESCE(notes, ''), created_at
		FROM alerts
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
)

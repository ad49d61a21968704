package database

// schema is the single source of truth for the application database.
//
// Monetary values are stored as TEXT: they are parsed into exact decimals by
// the repositories, which keeps weighted-average cost arithmetic free of
// cumulative floating-point error across many trades.
const schema = `
CREATE TABLE IF NOT EXISTS account (
    id              INTEGER PRIMARY KEY CHECK (id = 1),
    cash_balance    TEXT NOT NULL,
    initial_balance TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
    ticker        TEXT PRIMARY KEY,
    quantity      INTEGER NOT NULL CHECK (quantity > 0),
    avg_cost      TEXT NOT NULL,
    current_price TEXT,
    last_updated  INTEGER
);

CREATE TABLE IF NOT EXISTS trades (
    id           TEXT PRIMARY KEY,
    ticker       TEXT NOT NULL,
    side         TEXT NOT NULL CHECK (side IN ('buy', 'sell')),
    quantity     INTEGER NOT NULL CHECK (quantity > 0),
    price        TEXT NOT NULL,
    total_amount TEXT NOT NULL,
    executed_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_executed_at ON trades (executed_at DESC);
CREATE INDEX IF NOT EXISTS idx_trades_ticker ON trades (ticker);

CREATE TABLE IF NOT EXISTS cash_flows (
    id            TEXT PRIMARY KEY,
    kind          TEXT NOT NULL,
    amount        TEXT NOT NULL,
    balance_after TEXT NOT NULL,
    created_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS stocks (
    ticker TEXT NOT NULL,
    date   TEXT NOT NULL,
    open   TEXT,
    high   TEXT,
    low    TEXT,
    close  TEXT NOT NULL,
    volume INTEGER,
    PRIMARY KEY (ticker, date)
);

CREATE INDEX IF NOT EXISTS idx_stocks_ticker_date ON stocks (ticker, date DESC);
`

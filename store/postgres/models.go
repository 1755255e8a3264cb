package postgres

// Account is one row of the balance table.
type Account struct {
	Address string `gorm:"primaryKey"`
	Balance string `gorm:"not null"` // decimal text, see store.FormatBalance
}

// EventRecord is one block of the outcome chain.
type EventRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Seq       int    `gorm:"uniqueIndex;not null"`
	Timestamp int64  `gorm:"not null"`
	PrevHash  string `gorm:"not null"`
	Hash      string `gorm:"not null"`
	TxHash    string `gorm:"index"`
	Kind      string `gorm:"not null"`
	Player    string `gorm:"index"`
	Entropy   int64
	Minted    string `gorm:"not null"`
	Reason    string `gorm:"not null"`
}

// 包 domain 资产账本服务的领域模型
package domain

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerAccount 账本账户实体
// 以（持有人，资产）为键记录某一资产的可用余额
type LedgerAccount struct {
	gorm.Model
	// 持有人 ID
	OwnerID string `gorm:"column:owner_id;type:varchar(64);uniqueIndex:idx_owner_asset;not null" json:"owner_id"`
	// 资产标识（如 USD, GOLD, BTC）
	Asset string `gorm:"column:asset;type:varchar(32);uniqueIndex:idx_owner_asset;not null" json:"asset"`
	// 可用余额
	Balance decimal.Decimal `gorm:"column:balance;type:decimal(32,18);default:0;not null" json:"balance"`
}

// TableName 表名
func (LedgerAccount) TableName() string {
	return "ledger_accounts"
}

// Credit 入账
func (a *LedgerAccount) Credit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	a.Balance = a.Balance.Add(amount)
	return nil
}

// Debit 出账，余额不足时拒绝
func (a *LedgerAccount) Debit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if a.Balance.LessThan(amount) {
		return ErrInsufficientBalance
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}

// LedgerEntry 账本流水
// 每次资产移动都会留下一条双边流水，作为审计依据
type LedgerEntry struct {
	gorm.Model
	// 流水 ID (业务主键)
	EntryID string `gorm:"column:entry_id;type:varchar(32);uniqueIndex;not null" json:"entry_id"`
	// 转出方
	FromOwner string `gorm:"column:from_owner;type:varchar(64);index;not null" json:"from_owner"`
	// 转入方
	ToOwner string `gorm:"column:to_owner;type:varchar(64);index;not null" json:"to_owner"`
	// 资产标识
	Asset string `gorm:"column:asset;type:varchar(32);not null" json:"asset"`
	// 金额
	Amount decimal.Decimal `gorm:"column:amount;type:decimal(32,18);not null" json:"amount"`
	// 业务参考（如 auction:42:escrow）
	Reference string `gorm:"column:reference;type:varchar(128);index" json:"reference"`
}

// TableName 表名
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// 外部充值的记账来源方
const DepositSource = "EXTERNAL"

// LedgerRepository 账本仓储接口
type LedgerRepository interface {
	// WithTx 在事务中执行函数
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	// GetForUpdate 按（持有人，资产）加锁读取账户，不存在时返回 nil
	GetForUpdate(ctx context.Context, ownerID, asset string) (*LedgerAccount, error)
	// Get 按（持有人，资产）读取账户，不存在时返回 nil
	Get(ctx context.Context, ownerID, asset string) (*LedgerAccount, error)
	// Save 保存或更新账户
	Save(ctx context.Context, account *LedgerAccount) error
	// SaveEntry 保存流水
	SaveEntry(ctx context.Context, entry *LedgerEntry) error
	// ListEntries 按持有人分页查询流水
	ListEntries(ctx context.Context, ownerID string, limit, offset int) ([]*LedgerEntry, int64, error)
}

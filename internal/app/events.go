package app

import (
	"fmt"
	"time"

	"github.com/talkincode/toughpos/internal/domain"
	"github.com/talkincode/toughpos/internal/sales"
	"github.com/talkincode/toughpos/pkg/common"
	"go.uber.org/zap"
)

// EventOperation carries an Operation to the operation log.
const EventOperation = "system:operation"

// Operation is an auditable action outside the sales engine (logins, catalog edits).
type Operation struct {
	Operator string
	IP       string
	Action   string
	Desc     string
}

func (a *Application) subscribeEvents() {
	subs := map[string]interface{}{
		sales.EventTransactionCreated: a.onTransactionCreated,
		sales.EventTransactionStatus:  a.onTransactionStatus,
		EventOperation:                a.onOperation,
	}
	for topic, fn := range subs {
		if err := a.bus.Subscribe(topic, fn); err != nil {
			zap.L().Error("subscribe event failed", zap.String("topic", topic), zap.Error(err))
		}
	}
}

// ActorName renders an actor for the operation log.
func ActorName(actor domain.Actor) string {
	return fmt.Sprintf("%s:%d", actor.Role, actor.ID)
}

func (a *Application) onTransactionCreated(actor domain.Actor, txn *domain.Transaction) {
	a.writeOprLog(Operation{
		Operator: ActorName(actor),
		Action:   "transaction_create",
		Desc: fmt.Sprintf("transaction %d for customer %d, total %s, status %s",
			txn.ID, txn.CustomerID, txn.TotalAmount.StringFixed(2), txn.Status),
	})
}

func (a *Application) onTransactionStatus(actor domain.Actor, txn *domain.Transaction, from domain.TransactionStatus) {
	a.writeOprLog(Operation{
		Operator: ActorName(actor),
		Action:   "transaction_status",
		Desc:     fmt.Sprintf("transaction %d status %s -> %s", txn.ID, from, txn.Status),
	})
}

func (a *Application) onOperation(op Operation) {
	a.writeOprLog(op)
}

func (a *Application) writeOprLog(op Operation) {
	if a.gormDB == nil {
		return
	}
	entry := domain.SysOprLog{
		ID:        common.UUIDint64(),
		OprName:   op.Operator,
		OprIp:     common.IfEmptyStr(op.IP, common.NA),
		OptAction: op.Action,
		OptDesc:   op.Desc,
		OptTime:   time.Now(),
	}
	if err := a.gormDB.Create(&entry).Error; err != nil {
		zap.L().Error("write operation log failed", zap.String("action", op.Action), zap.Error(err))
	}
}

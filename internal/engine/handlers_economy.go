package engine

import (
	"context"

	"github.com/dustin/go-humanize"

	"github.com/lawnchairsociety/gridkeep/server/internal/engineerr"
	"github.com/lawnchairsociety/gridkeep/server/internal/protocol"
	"github.com/lawnchairsociety/gridkeep/server/internal/session"
)

// roomWarehouseKey looks up the warehouse key a room's deed scheme
// addresses, using the room's id as the key (the teacher's factory rooms
// are named per warehouse in the map data).
func (e *Engine) roomWarehouseKey(s *session.Session) string {
	s.Lock()
	defer s.Unlock()
	return s.RoomID
}

func (e *Engine) handleStore(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	var msg protocol.StoreMsg
	if err := env.Decode(&msg); err != nil {
		return engineerr.Template(engineerr.Validation, "store_malformed", nil)
	}
	itemID, err := e.resolveItem(msg.ItemName)
	if err != nil {
		return err
	}
	qty := parseQuantity(msg.Quantity)

	s.Lock()
	playerID := s.PlayerID
	s.Unlock()
	key, fullAccess, err := e.Warehouse.AccessibleWarehouse(ctx, playerID, e.roomWarehouseKey(s))
	if err != nil {
		return err
	}
	if !fullAccess {
		return engineerr.Template(engineerr.DomainRule, "warehouse_view_only", nil)
	}
	stored, err := e.Warehouse.Store(ctx, playerID, key, itemID, qty)
	if err != nil {
		return err
	}
	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.WarehouseWidgetStateFrame, map[string]any{
			"stored": stored, "item": itemID,
		}))
	}
	return nil
}

func (e *Engine) handleWithdraw(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	var msg protocol.WithdrawMsg
	if err := env.Decode(&msg); err != nil {
		return engineerr.Template(engineerr.Validation, "withdraw_malformed", nil)
	}

	s.Lock()
	playerID := s.PlayerID
	s.Unlock()

	if msg.CurrencyName != "" {
		itemID, withdrawn, err := e.Bank.Withdraw(ctx, playerID, msg.CurrencyName, parseQuantity(msg.Quantity))
		if err != nil {
			return err
		}
		if s.Conn != nil {
			_ = s.Conn.Send(protocol.Out(protocol.MessageFrame, map[string]any{
				"message": e.Templates.Format("withdraw_success", map[string]any{"item": itemID, "quantity": withdrawn}),
			}))
		}
		return nil
	}

	itemID, err := e.resolveItem(msg.ItemName)
	if err != nil {
		return err
	}
	key, fullAccess, err := e.Warehouse.AccessibleWarehouse(ctx, playerID, e.roomWarehouseKey(s))
	if err != nil {
		return err
	}
	if !fullAccess {
		return engineerr.Template(engineerr.DomainRule, "warehouse_view_only", nil)
	}
	withdrawn, err := e.Warehouse.Withdraw(ctx, playerID, key, itemID, parseQuantity(msg.Quantity))
	if err != nil {
		return err
	}
	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.WarehouseWidgetStateFrame, map[string]any{
			"withdrawn": withdrawn, "item": itemID,
		}))
	}
	return nil
}

func (e *Engine) handleList(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	s.Lock()
	roomID := s.RoomID
	s.Unlock()
	rows, err := e.Merchant.List(ctx, roomID)
	if err != nil {
		return err
	}
	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.MerchantListFrame, map[string]any{"items": rows}))
	}
	return nil
}

func (e *Engine) handleDeposit(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	var msg protocol.DepositMsg
	if err := env.Decode(&msg); err != nil {
		return engineerr.Template(engineerr.Validation, "deposit_malformed", nil)
	}
	s.Lock()
	playerID := s.PlayerID
	s.Unlock()
	itemID, deposited, err := e.Bank.Deposit(ctx, playerID, msg.CurrencyName, parseQuantity(msg.Quantity))
	if err != nil {
		return err
	}
	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.MessageFrame, map[string]any{
			"message": e.Templates.Format("deposit_success", map[string]any{"item": itemID, "quantity": deposited}),
		}))
	}
	return nil
}

func (e *Engine) handleBalance(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	s.Lock()
	playerID := s.PlayerID
	s.Unlock()
	rows, err := e.Repo.GetPlayerBankBalance(ctx, playerID)
	if err != nil {
		return engineerr.Wrap(err, "read bank balance")
	}
	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.MessageFrame, map[string]any{"balance": rows}))
	}
	return nil
}

func (e *Engine) handleWealth(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	s.Lock()
	playerID := s.PlayerID
	s.Unlock()
	total, err := e.Bank.Wealth(ctx, playerID)
	if err != nil {
		return err
	}
	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.MessageFrame, map[string]any{
			"message": e.Templates.Format("wealth_total", map[string]any{"amount": humanize.Comma(int64(total))}),
		}))
	}
	return nil
}

func (e *Engine) handleBuy(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	var msg protocol.BuyMsg
	if err := env.Decode(&msg); err != nil {
		return engineerr.Template(engineerr.Validation, "buy_malformed", nil)
	}
	itemID, err := e.resolveItem(msg.ItemName)
	if err != nil {
		return err
	}
	s.Lock()
	roomID, playerID := s.RoomID, s.PlayerID
	s.Unlock()
	if err := e.Merchant.Buy(ctx, playerID, roomID, itemID, parseQuantity(msg.Quantity)); err != nil {
		return err
	}
	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.MessageFrame, map[string]any{
			"message": e.Templates.Format("buy_success", map[string]any{"item": itemID}),
		}))
	}
	return nil
}

func (e *Engine) handleSell(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	var msg protocol.SellMsg
	if err := env.Decode(&msg); err != nil {
		return engineerr.Template(engineerr.Validation, "sell_malformed", nil)
	}
	itemID, err := e.resolveItem(msg.ItemName)
	if err != nil {
		return err
	}
	s.Lock()
	roomID, playerID := s.RoomID, s.PlayerID
	s.Unlock()
	if err := e.Merchant.Sell(ctx, playerID, roomID, itemID, parseQuantity(msg.Quantity)); err != nil {
		return err
	}
	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.MessageFrame, map[string]any{
			"message": e.Templates.Format("sell_success", map[string]any{"item": itemID}),
		}))
	}
	return nil
}

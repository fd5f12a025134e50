package engine

import (
	"context"
	"errors"

	"github.com/lawnchairsociety/gridkeep/server/internal/protocol"
	"github.com/lawnchairsociety/gridkeep/server/internal/session"
)

var (
	errUnauthenticated = errors.New("session not authenticated")
	errUnknownType     = errors.New("unknown frame type")
)

type handlerFunc func(e *Engine, ctx context.Context, s *session.Session, env protocol.Envelope) error

// handlers is the dispatch table (Design Notes: "text command table ->
// type-tagged frame table"). Every entry here corresponds to one of the
// InboundType constants declared in internal/protocol; authenticateSession
// is handled specially in Dispatch and is not listed.
var handlers = map[protocol.InboundType]handlerFunc{
	protocol.Move:                  (*Engine).handleMove,
	protocol.Look:                  (*Engine).handleLook,
	protocol.Inventory:             (*Engine).handleInventory,
	protocol.Take:                  (*Engine).handleTake,
	protocol.Drop:                  (*Engine).handleDrop,
	protocol.FactoryWidgetAddItem:  (*Engine).handleFactoryWidgetAddItem,
	protocol.Harvest:               (*Engine).handleHarvest,
	protocol.Talk:                  (*Engine).handleTalk,
	protocol.Solve:                 (*Engine).handleSolve,
	protocol.Clue:                  (*Engine).handleClue,
	protocol.Greet:                 (*Engine).handleGreet,
	protocol.Store:                 (*Engine).handleStore,
	protocol.Withdraw:              (*Engine).handleWithdraw,
	protocol.List:                  (*Engine).handleList,
	protocol.Deposit:               (*Engine).handleDeposit,
	protocol.Balance:                (*Engine).handleBalance,
	protocol.Buy:                   (*Engine).handleBuy,
	protocol.Sell:                  (*Engine).handleSell,
	protocol.Wealth:                (*Engine).handleWealth,
	protocol.Who:                   (*Engine).handleWho,
	protocol.SaveTerminalMessage:   (*Engine).handleSaveTerminalMessage,
	protocol.UpdateWidgetConfig:    (*Engine).handleUpdateWidgetConfig,
	protocol.GetWidgetConfig:       (*Engine).handleGetWidgetConfig,
	protocol.StartPathingMode:      (*Engine).handleStartPathingMode,
	protocol.AddPathStep:           (*Engine).handleAddPathStep,
	protocol.SavePath:              (*Engine).handleSavePath,
	protocol.CancelPathing:         (*Engine).handleCancelPathing,
	protocol.GetPathDetails:        (*Engine).handleGetPathDetails,
	protocol.GetAllPlayerPaths:     (*Engine).handleGetAllPlayerPaths,
	protocol.StartPathExecution:    (*Engine).handleStartPathExecution,
	protocol.StopPathExecution:     (*Engine).handleStopPathExecution,
	protocol.ContinuePathExecution: (*Engine).handleContinuePathExecution,
	protocol.CalculateAutoPath:     (*Engine).handleCalculateAutoPath,
	protocol.StartAutoNavigation:   (*Engine).handleStartAutoNavigation,
	protocol.GetMapData:            (*Engine).handleGetMapData,
	protocol.GetAutoPathMaps:       (*Engine).handleGetAutoPathMaps,
	protocol.GetAutoPathRooms:      (*Engine).handleGetAutoPathRooms,
}

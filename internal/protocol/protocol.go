// Package protocol defines the JSON wire frames exchanged with a connected
// client: a sealed set of `type`-tagged variants, decoded and dispatched
// through an explicit table (Design Notes: "Dynamic message bag → tagged
// variant"). Unknown types are rejected at decode time rather than ignored.
package protocol

import (
	"encoding/json"
	"fmt"
)

// InboundType is the closed set of frame types a client may send.
type InboundType string

const (
	AuthenticateSession   InboundType = "authenticateSession"
	Move                  InboundType = "move"
	Look                  InboundType = "look"
	Inventory             InboundType = "inventory"
	Take                  InboundType = "take"
	Drop                  InboundType = "drop"
	FactoryWidgetAddItem  InboundType = "factoryWidgetAddItem"
	Harvest               InboundType = "harvest"
	Talk                  InboundType = "talk"
	Solve                 InboundType = "solve"
	Clue                  InboundType = "clue"
	Greet                 InboundType = "greet"
	Store                 InboundType = "store"
	Withdraw              InboundType = "withdraw"
	List                  InboundType = "list"
	Deposit               InboundType = "deposit"
	Balance               InboundType = "balance"
	Buy                   InboundType = "buy"
	Sell                  InboundType = "sell"
	Wealth                InboundType = "wealth"
	Who                   InboundType = "who"
	SaveTerminalMessage   InboundType = "saveTerminalMessage"
	GetAutoPathMaps       InboundType = "getAutoPathMaps"
	GetAutoPathRooms      InboundType = "getAutoPathRooms"
	CalculateAutoPath     InboundType = "calculateAutoPath"
	StartAutoNavigation   InboundType = "startAutoNavigation"
	GetWidgetConfig       InboundType = "getWidgetConfig"
	UpdateWidgetConfig    InboundType = "updateWidgetConfig"
	StartPathingMode      InboundType = "startPathingMode"
	AddPathStep           InboundType = "addPathStep"
	SavePath              InboundType = "savePath"
	CancelPathing         InboundType = "cancelPathing"
	GetMapData            InboundType = "getMapData"
	GetAllPlayerPaths     InboundType = "getAllPlayerPaths"
	GetPathDetails        InboundType = "getPathDetails"
	StartPathExecution    InboundType = "startPathExecution"
	StopPathExecution     InboundType = "stopPathExecution"
	ContinuePathExecution InboundType = "continuePathExecution"
	RestartServer         InboundType = "restartServer"
)

// OutboundType is the closed set of frame types the engine sends.
type OutboundType string

const (
	ErrorFrame              OutboundType = "error"
	MessageFrame            OutboundType = "message"
	SystemMessageFrame      OutboundType = "systemMessage"
	MovedFrame              OutboundType = "moved"
	MapDataFrame            OutboundType = "mapData"
	MapUpdateFrame          OutboundType = "mapUpdate"
	PlayerStatsFrame        OutboundType = "playerStats"
	PlayerJoinedFrame       OutboundType = "playerJoined"
	PlayerLeftFrame         OutboundType = "playerLeft"
	TalkedFrame             OutboundType = "talked"
	LoreKeeperMessageFrame  OutboundType = "loreKeeperMessage"
	InventoryListFrame      OutboundType = "inventoryList"
	MerchantListFrame       OutboundType = "merchantList"
	FactoryWidgetStateFrame OutboundType = "factoryWidgetState"
	WarehouseWidgetStateFrame OutboundType = "warehouseWidgetState"
	WidgetConfigFrame       OutboundType = "widgetConfig"
	WidgetConfigUpdatedFrame OutboundType = "widgetConfigUpdated"
	TerminalHistoryFrame    OutboundType = "terminalHistory"
	PathingModeStartedFrame OutboundType = "pathingModeStarted"
	PathStepAddedFrame      OutboundType = "pathStepAdded"
	PathSavedFrame          OutboundType = "pathSaved"
	PathingCancelledFrame   OutboundType = "pathingCancelled"
	AllPlayerPathsFrame     OutboundType = "allPlayerPaths"
	PathDetailsFrame        OutboundType = "pathDetails"
	PathExecutionStartedFrame  OutboundType = "pathExecutionStarted"
	PathExecutionCompleteFrame OutboundType = "pathExecutionComplete"
	PathExecutionStoppedFrame  OutboundType = "pathExecutionStopped"
	PathExecutionResumedFrame  OutboundType = "pathExecutionResumed"
	PathExecutionFailedFrame   OutboundType = "pathExecutionFailed"
	AutoPathMapsFrame       OutboundType = "autoPathMaps"
	AutoPathRoomsFrame      OutboundType = "autoPathRooms"
	AutoPathCalculatedFrame OutboundType = "autoPathCalculated"
	AutoNavigationStartedFrame  OutboundType = "autoNavigationStarted"
	AutoNavigationCompleteFrame OutboundType = "autoNavigationComplete"
	AutoNavigationFailedFrame   OutboundType = "autoNavigationFailed"
	ForceCloseFrame         OutboundType = "forceClose"
	GameMessagesFrame       OutboundType = "gameMessages"
)

// Envelope is the raw shape every inbound frame is first decoded into: just
// enough to read the type tag and keep the rest for variant-specific
// decoding.
type Envelope struct {
	Type InboundType     `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// DecodeEnvelope reads the type tag from a raw frame and rejects unknown
// variants immediately, per Design Notes "reject unknown variants at
// decode time".
func DecodeEnvelope(data []byte) (Envelope, error) {
	var peek struct {
		Type InboundType `json:"type"`
	}
	if err := json.Unmarshal(data, &peek); err != nil {
		return Envelope{}, fmt.Errorf("malformed frame: %w", err)
	}
	if peek.Type == "" {
		return Envelope{}, fmt.Errorf("frame missing type tag")
	}
	if !knownInboundTypes[peek.Type] {
		return Envelope{}, fmt.Errorf("unknown frame type %q", peek.Type)
	}
	return Envelope{Type: peek.Type, Raw: data}, nil
}

var knownInboundTypes = map[InboundType]bool{
	AuthenticateSession: true, Move: true, Look: true, Inventory: true, Take: true,
	Drop: true, FactoryWidgetAddItem: true, Harvest: true, Talk: true, Solve: true, Clue: true, Greet: true,
	Store: true, Withdraw: true, List: true, Deposit: true, Balance: true, Buy: true,
	Sell: true, Wealth: true, Who: true, SaveTerminalMessage: true,
	GetAutoPathMaps: true, GetAutoPathRooms: true, CalculateAutoPath: true,
	StartAutoNavigation: true, GetWidgetConfig: true, UpdateWidgetConfig: true,
	StartPathingMode: true, AddPathStep: true, SavePath: true, CancelPathing: true,
	GetMapData: true, GetAllPlayerPaths: true, GetPathDetails: true,
	StartPathExecution: true, StopPathExecution: true, ContinuePathExecution: true,
	RestartServer: true,
}

// Out builds a minimal outbound frame map; every outbound frame carries at
// least `type` per §6.2. Handlers add variant-specific fields via the
// fields argument.
func Out(t OutboundType, fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["type"] = string(t)
	return out
}

// NPCSpeech fills in the coloured-speech fields common to loreKeeperMessage
// frames: npcName, npcColor, message, messageColor, keywordColor.
func NPCSpeech(npcName, npcColor, message, messageColor, keywordColor string) map[string]any {
	return map[string]any{
		"npcName":      npcName,
		"npcColor":     npcColor,
		"message":      message,
		"messageColor": messageColor,
		"keywordColor": keywordColor,
	}
}

package protocol

import "encoding/json"

// Decode unmarshals an envelope's raw payload into a variant-specific
// struct. Callers pick the struct that matches env.Type.
func (e Envelope) Decode(v any) error {
	return json.Unmarshal(e.Raw, v)
}

type AuthenticateSessionMsg struct {
	Token      string `json:"token"`
	PlayerName string `json:"playerName"`
	WindowID   string `json:"windowId"`
}

type MoveMsg struct {
	Direction string `json:"direction"`
}

type TakeMsg struct {
	ItemName string `json:"itemName"`
	Quantity string `json:"quantity,omitempty"`
}

type DropMsg struct {
	ItemName string `json:"itemName"`
	Quantity string `json:"quantity,omitempty"`
}

type HarvestMsg struct {
	Target string `json:"target"`
}

type TalkMsg struct {
	Message string `json:"message"`
}

type SolveMsg struct {
	Target string `json:"target"`
	Answer string `json:"answer"`
}

type ClueMsg struct {
	Target string `json:"target"`
}

type GreetMsg struct {
	Target string `json:"target"`
}

type StoreMsg struct {
	ItemName string `json:"itemName"`
	Quantity string `json:"quantity,omitempty"`
}

type WithdrawMsg struct {
	CurrencyName string `json:"currencyName,omitempty"`
	ItemName     string `json:"itemName,omitempty"`
	Quantity     string `json:"quantity,omitempty"`
}

type FactoryWidgetAddItemMsg struct {
	Slot     int    `json:"slot"`
	ItemName string `json:"itemName"`
}

type DepositMsg struct {
	CurrencyName string `json:"currencyName"`
	Quantity     string `json:"quantity"`
}

type BuyMsg struct {
	ItemName string `json:"itemName"`
	Quantity string `json:"quantity,omitempty"`
}

type SellMsg struct {
	ItemName string `json:"itemName"`
	Quantity string `json:"quantity,omitempty"`
}

type CalculateAutoPathMsg struct {
	DestinationRoomID string `json:"destinationRoomId"`
}

type StartAutoNavigationMsg struct {
	DestinationRoomID string `json:"destinationRoomId"`
}

type UpdateWidgetConfigMsg struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type AddPathStepMsg struct {
	RoomID         string `json:"roomId"`
	PreviousRoomID string `json:"previousRoomId,omitempty"`
}

type SavePathMsg struct {
	Name         string `json:"name"`
	Kind         string `json:"kind"` // "path" or "loop"
	OriginRoomID string `json:"originRoomId"`
	MapID        string `json:"mapId"`
}

type GetPathDetailsMsg struct {
	PathID string `json:"pathId"`
}

type StartPathExecutionMsg struct {
	PathID string `json:"pathId"`
}

type StopPathExecutionMsg struct {
	PathID string `json:"pathId"`
}

type ContinuePathExecutionMsg struct {
	PathID string `json:"pathId"`
}

type GetAutoPathRoomsMsg struct {
	MapID string `json:"mapId"`
}

type GetMapDataMsg struct {
	MapID string `json:"mapId,omitempty"`
}

package handler

import (
	"time"

	"github.com/blues/ffb/internal/model"
)

// 通用响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// 分页信息结构
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

// 众筹相关响应模型

// CrowdsaleResponse 众筹响应模型
type CrowdsaleResponse struct {
	ID              int64     `json:"id"`
	Address         string    `json:"address"`
	Creator         string    `json:"creator"`
	Wallet          string    `json:"wallet"`
	TokenAddress    string    `json:"tokenAddress,omitempty"`
	Cap             string    `json:"cap"`
	Goal            string    `json:"goal"`
	Rate            int64     `json:"rate"`
	WeiRaised       string    `json:"weiRaised"`
	OpeningTime     time.Time `json:"openingTime"`
	ClosingTime     time.Time `json:"closingTime"`
	Round           int64     `json:"round"`
	PreviousRoundID int64     `json:"previousRoundId,omitempty"`
	NextRoundID     int64     `json:"nextRoundId,omitempty"`
	FeePerMille     int64     `json:"feePerMille"`
	Info            string    `json:"info"`
	State           string    `json:"state"`
	Paused          bool      `json:"paused"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// GetCrowdsalesResponse 众筹列表响应
type GetCrowdsalesResponse struct {
	Crowdsales []CrowdsaleResponse `json:"crowdsales"`
	Pagination Pagination          `json:"pagination"`
}

// DepositResponse 托管存款响应模型
type DepositResponse struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

// TokenResponse 代币响应模型
type TokenResponse struct {
	ID          int64  `json:"id"`
	Address     string `json:"address"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    uint8  `json:"decimals"`
	Owner       string `json:"owner"`
	TotalSupply string `json:"totalSupply"`
	Finished    bool   `json:"mintingFinished"`
}

// BuilderResponse 平台响应模型
type BuilderResponse struct {
	Address        string `json:"address"`
	Owner          string `json:"owner"`
	Wallet         string `json:"wallet"`
	FeePerMille    int64  `json:"feePerMille"`
	Paused         bool   `json:"paused"`
	CrowdsaleCount int64  `json:"crowdsaleCount"`
}

// EventResponse 事件响应模型
type EventResponse struct {
	ID        int64     `json:"id"`
	Contract  string    `json:"contract"`
	EventType string    `json:"eventType"`
	TxHash    string    `json:"txHash"`
	Data      string    `json:"data"`
	CreatedAt time.Time `json:"createdAt"`
}

// 转换函数

// ToCrowdsaleResponse 将数据库模型转换为响应模型
func ToCrowdsaleResponse(cs *model.CrowdsaleModel) CrowdsaleResponse {
	return CrowdsaleResponse{
		ID:              cs.Id,
		Address:         cs.Address,
		Creator:         cs.Creator,
		Wallet:          cs.Wallet,
		Cap:             cs.Cap.String(),
		Goal:            cs.Goal.String(),
		Rate:            cs.Rate,
		WeiRaised:       cs.WeiRaised.String(),
		OpeningTime:     cs.OpeningTime,
		ClosingTime:     cs.ClosingTime,
		Round:           cs.Round,
		PreviousRoundID: cs.PreviousRoundId,
		NextRoundID:     cs.NextRoundId,
		FeePerMille:     cs.FriendsFingersRatePerMille,
		Info:            cs.CrowdsaleInfo,
		State:           string(cs.State),
		Paused:          cs.Paused,
		CreatedAt:       cs.CreatedAt,
		UpdatedAt:       cs.UpdatedAt,
	}
}

// ToCrowdsaleResponseList 将数据库模型列表转换为响应模型列表
func ToCrowdsaleResponseList(crowdsales []model.CrowdsaleModel) []CrowdsaleResponse {
	result := make([]CrowdsaleResponse, len(crowdsales))
	for i, cs := range crowdsales {
		result[i] = ToCrowdsaleResponse(&cs)
	}
	return result
}

// ToDepositResponseList 将托管存款列表转换为响应模型列表
func ToDepositResponseList(deposits []model.DepositModel) []DepositResponse {
	result := make([]DepositResponse, len(deposits))
	for i, d := range deposits {
		result[i] = DepositResponse{Address: d.Address, Amount: d.Amount.String()}
	}
	return result
}

// ToTokenResponse 将代币模型转换为响应模型
func ToTokenResponse(token *model.TokenModel) TokenResponse {
	return TokenResponse{
		ID:          token.Id,
		Address:     token.Address,
		Name:        token.Name,
		Symbol:      token.Symbol,
		Decimals:    token.Decimals,
		Owner:       token.Owner,
		TotalSupply: token.TotalSupply.String(),
		Finished:    token.MintingFinished,
	}
}

// ToBuilderResponse 将平台模型转换为响应模型
func ToBuilderResponse(builder *model.BuilderModel) BuilderResponse {
	return BuilderResponse{
		Address:        builder.Address,
		Owner:          builder.Owner,
		Wallet:         builder.FriendsFingersWallet,
		FeePerMille:    builder.FriendsFingersRatePerMille,
		Paused:         builder.Paused,
		CrowdsaleCount: builder.CrowdsaleCount,
	}
}

// ToEventResponseList 将事件列表转换为响应模型列表
func ToEventResponseList(events []model.EventModel) []EventResponse {
	result := make([]EventResponse, len(events))
	for i, e := range events {
		result[i] = EventResponse{
			ID:        e.Id,
			Contract:  e.ContractAddress,
			EventType: e.EventType,
			TxHash:    e.TxHash,
			Data:      e.Data,
			CreatedAt: e.CreatedAt,
		}
	}
	return result
}

package connector

import (
	"errors"
	"fmt"

	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

var errNilEnvelope = errors.New("nil envelope")

// PaymentFlowShape converts payment envelopes to and from PaymentFlowData.
// New-generation payment integrations embed it.
type PaymentFlowShape[F models.Flow, Req any, Resp any] struct{}

func (PaymentFlowShape[F, Req, Resp]) ToNewShape(old *models.RouterData[F, Req, Resp]) (*models.RouterDataV2[F, models.PaymentFlowData, Req, Resp], error) {
	if old == nil {
		return nil, errNilEnvelope
	}
	return &models.RouterDataV2[F, models.PaymentFlowData, Req, Resp]{
		Flow: old.Flow,
		ResourceCommonData: models.PaymentFlowData{
			MerchantID:                  old.MerchantID,
			PaymentID:                   old.PaymentID,
			AttemptID:                   old.AttemptID,
			Connector:                   old.Connector,
			Status:                      old.Status,
			ConnectorRequestReferenceID: old.ConnectorRequestReferenceID,
			TestMode:                    old.TestMode,
		},
		ConnectorAuthType: old.ConnectorAuthType,
		Request:           old.Request,
		Response:          old.Response,
		ErrorResponse:     old.ErrorResponse,
	}, nil
}

func (PaymentFlowShape[F, Req, Resp]) ToOldShape(updated *models.RouterDataV2[F, models.PaymentFlowData, Req, Resp], old *models.RouterData[F, Req, Resp]) (*models.RouterData[F, Req, Resp], error) {
	if updated == nil || old == nil {
		return nil, errNilEnvelope
	}
	status := updated.ResourceCommonData.Status
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("unknown attempt status %q", status)
	}
	out := old.Clone()
	out.Status = status
	out.Response = updated.Response
	out.ErrorResponse = updated.ErrorResponse
	return out, nil
}

// RefundFlowShape converts refund envelopes to and from RefundFlowData.
type RefundFlowShape[F models.Flow, Req any, Resp any] struct{}

func (RefundFlowShape[F, Req, Resp]) ToNewShape(old *models.RouterData[F, Req, Resp]) (*models.RouterDataV2[F, models.RefundFlowData, Req, Resp], error) {
	if old == nil {
		return nil, errNilEnvelope
	}
	if old.RefundID == "" {
		return nil, errors.New("refund envelope without refund id")
	}
	return &models.RouterDataV2[F, models.RefundFlowData, Req, Resp]{
		Flow: old.Flow,
		ResourceCommonData: models.RefundFlowData{
			MerchantID:                  old.MerchantID,
			PaymentID:                   old.PaymentID,
			AttemptID:                   old.AttemptID,
			Connector:                   old.Connector,
			Status:                      old.Status,
			RefundID:                    old.RefundID,
			ConnectorRequestReferenceID: old.ConnectorRequestReferenceID,
		},
		ConnectorAuthType: old.ConnectorAuthType,
		Request:           old.Request,
		Response:          old.Response,
		ErrorResponse:     old.ErrorResponse,
	}, nil
}

func (RefundFlowShape[F, Req, Resp]) ToOldShape(updated *models.RouterDataV2[F, models.RefundFlowData, Req, Resp], old *models.RouterData[F, Req, Resp]) (*models.RouterData[F, Req, Resp], error) {
	if updated == nil || old == nil {
		return nil, errNilEnvelope
	}
	if updated.ResourceCommonData.RefundID != old.RefundID {
		return nil, fmt.Errorf("refund id changed from %q to %q", old.RefundID, updated.ResourceCommonData.RefundID)
	}
	out := old.Clone()
	out.Response = updated.Response
	out.ErrorResponse = updated.ErrorResponse
	return out, nil
}

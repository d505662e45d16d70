package grpc

import (
	"fmt"

	"github.com/dmitrijs2005/guardkeeper/internal/common"
	"github.com/dmitrijs2005/guardkeeper/internal/server/models"
	"github.com/dmitrijs2005/guardkeeper/internal/server/services"
	"google.golang.org/protobuf/types/known/structpb"
)

// stringField returns in[key] when it is a string, "" otherwise.
func stringField(in *structpb.Struct, key string) string {
	v, ok := in.GetFields()[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

// optionalString returns nil when key is absent or null.
func optionalString(in *structpb.Struct, key string) (*string, error) {
	v, ok := in.GetFields()[key]
	if !ok {
		return nil, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return nil, nil
	case *structpb.Value_StringValue:
		return &k.StringValue, nil
	}
	return nil, fmt.Errorf("%w: %s must be a string", common.ErrorInvalidInput, key)
}

func stringList(in *structpb.Struct, key string) ([]string, error) {
	v, ok := in.GetFields()[key]
	if !ok {
		return nil, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("%w: %s must be a list of strings", common.ErrorInvalidInput, key)
	}
	out := make([]string, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		sv, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a list of strings", common.ErrorInvalidInput, key)
		}
		out = append(out, sv.StringValue)
	}
	return out, nil
}

func nominationMap(n *models.Nomination) map[string]any {
	return map[string]any{
		"id":          n.ID,
		"email":       n.Email,
		"guardian_id": n.GuardianID,
		"account_id":  n.AccountID,
		"status":      string(n.Status),
	}
}

func nominationList(ns []*models.Nomination) []any {
	out := make([]any, 0, len(ns))
	for _, n := range ns {
		out = append(out, nominationMap(n))
	}
	return out
}

func accountGuardianList(vs []models.AccountGuardianView) []any {
	out := make([]any, 0, len(vs))
	for _, v := range vs {
		out = append(out, map[string]any{
			"id":             v.ID,
			"email":          v.Email,
			"wallet_address": v.WalletAddress,
			"status":         string(v.Status),
		})
	}
	return out
}

func guardianAccountList(vs []models.GuardianAccountView) []any {
	out := make([]any, 0, len(vs))
	for _, v := range vs {
		out = append(out, map[string]any{
			"id":             v.ID,
			"email":          v.Email,
			"wallet_address": v.WalletAddress,
		})
	}
	return out
}

func settingsMap(v *services.SettingsView) map[string]any {
	strategies := make([]any, 0, len(v.AllStrategies))
	for _, st := range v.AllStrategies {
		strategies = append(strategies, string(st))
	}
	return map[string]any{
		"signers":            string(v.Strategy),
		"active_guardians":   accountGuardianList(v.ActiveGuardians),
		"signing_strategies": strategies,
	}
}

func accountMap(a *models.Account) map[string]any {
	return map[string]any{
		"id":             a.ID,
		"email":          a.Email,
		"wallet_address": a.WalletAddress,
		"eoa_address":    a.EOAAddress,
		"updated_at":     float64(a.UpdatedAt),
	}
}

func accountList(accs []*models.Account) []any {
	out := make([]any, 0, len(accs))
	for _, a := range accs {
		out = append(out, accountMap(a))
	}
	return out
}

package ruleset

import (
	"fmt"

	"mercator-hq/enricher/pkg/config"
	"mercator-hq/enricher/pkg/transform/headerrules"
	"mercator-hq/enricher/pkg/transform/jsonrules"
)

// Build turns declared rule specs into a Set. An empty configuration yields
// Default(). Specs are expected to have passed config validation; anything
// Build cannot map is still reported as an error.
func Build(cfg config.RulesConfig) (*Set, error) {
	if cfg.Empty() {
		return Default(), nil
	}

	s := &Set{}
	var err error

	if s.RequestHeaders, err = buildHeaderRules("rules.request_headers", cfg.RequestHeaders); err != nil {
		return nil, err
	}
	if s.ResponseHeaders, err = buildHeaderRules("rules.response_headers", cfg.ResponseHeaders); err != nil {
		return nil, err
	}
	if s.RequestBody, err = buildBodyRules("rules.request_body", cfg.RequestBody); err != nil {
		return nil, err
	}
	if s.ResponseBody, err = buildBodyRules("rules.response_body", cfg.ResponseBody); err != nil {
		return nil, err
	}
	return s, nil
}

func buildHeaderRules(field string, specs []config.HeaderRuleSpec) ([]headerrules.Rule, error) {
	rules := make([]headerrules.Rule, 0, len(specs))
	for i, spec := range specs {
		rule, err := headerRule(spec)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", field, i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func headerRule(spec config.HeaderRuleSpec) (headerrules.Rule, error) {
	scope := headerrules.ScopeSame
	if spec.Scope == config.ScopeRequest {
		scope = headerrules.ScopeRequest
	}

	switch spec.Op {
	case config.HeaderOpAdd:
		return headerrules.AddHeader{Name: spec.Name, Value: spec.Value}, nil
	case config.HeaderOpAddComputed:
		fn, err := headerValueFunc(spec.Func)
		if err != nil {
			return nil, err
		}
		return headerrules.AddHeaderComputed{Name: spec.Name, Fn: fn}, nil
	case config.HeaderOpRemove:
		return headerrules.RemoveHeader{Name: spec.Name}, nil
	case config.HeaderOpRewrite:
		fn, err := headerStringFunc(spec.Func, spec.Arg)
		if err != nil {
			return nil, err
		}
		return headerrules.RewriteHeader{Name: spec.Name, Fn: fn}, nil
	case config.HeaderOpRewriteIf:
		return headerrules.RewriteIf{Name: spec.Name, Value: spec.Value, NewValue: spec.NewValue}, nil
	case config.HeaderOpEchoIf:
		return headerrules.EchoIf{Source: spec.Source, Target: spec.Target, Scope: scope}, nil
	case config.HeaderOpAddIf:
		return headerrules.AddIf{Guard: spec.Guard, Scope: scope, Name: spec.Name, Value: spec.Value}, nil
	default:
		return nil, fmt.Errorf("unknown header op %q", spec.Op)
	}
}

func headerValueFunc(name string) (headerrules.ValueFunc, error) {
	switch name {
	case config.FuncUnixSeconds:
		return headerrules.UnixSeconds(), nil
	case config.FuncUnixMillis:
		return headerrules.UnixMillis(), nil
	case config.FuncRFC3339:
		return headerrules.RFC3339(), nil
	case config.FuncUUID:
		return headerrules.NewUUID(), nil
	default:
		return nil, fmt.Errorf("unknown header value function %q", name)
	}
}

func headerStringFunc(name, arg string) (headerrules.StringFunc, error) {
	switch name {
	case config.FuncPrefix:
		return headerrules.Prefix(arg), nil
	case config.FuncSuffix:
		return headerrules.Suffix(arg), nil
	default:
		return nil, fmt.Errorf("unknown header rewrite function %q", name)
	}
}

func buildBodyRules(field string, specs []config.BodyRuleSpec) ([]jsonrules.Rule, error) {
	rules := make([]jsonrules.Rule, 0, len(specs))
	for i, spec := range specs {
		rule, err := bodyRule(spec)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", field, i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func bodyRule(spec config.BodyRuleSpec) (jsonrules.Rule, error) {
	switch spec.Op {
	case config.BodyOpInsert:
		return jsonrules.InsertConstant{Key: spec.Key, Value: spec.Value}, nil
	case config.BodyOpInsertComputed:
		fn, err := bodyValueFunc(spec.Func, spec.Header)
		if err != nil {
			return nil, err
		}
		return jsonrules.InsertComputed{Key: spec.Key, Fn: fn}, nil
	case config.BodyOpRewrite:
		fn, err := bodyStringFunc(spec.Func, spec.Arg)
		if err != nil {
			return nil, err
		}
		return jsonrules.RewriteField{Key: spec.Key, Fn: fn}, nil
	case config.BodyOpFlag:
		pred, err := bodyPredicate(spec.Func, spec.Arg)
		if err != nil {
			return nil, err
		}
		return jsonrules.ConditionalFlag{Source: spec.Source, Predicate: pred, Flag: spec.Flag, FlagValue: spec.FlagValue}, nil
	case config.BodyOpRemove:
		return jsonrules.RemoveFields{Keys: append([]string(nil), spec.Keys...)}, nil
	case config.BodyOpDeriveCount:
		return jsonrules.DeriveCount{From: spec.From, Into: spec.Into}, nil
	default:
		return nil, fmt.Errorf("unknown body op %q", spec.Op)
	}
}

func bodyValueFunc(name, header string) (jsonrules.ValueFunc, error) {
	switch name {
	case config.FuncNow:
		return jsonrules.Now(), nil
	case config.FuncRequestHeader:
		return jsonrules.RequestHeader(header), nil
	case config.FuncUUID:
		return jsonrules.NewUUID(), nil
	default:
		return nil, fmt.Errorf("unknown body value function %q", name)
	}
}

func bodyStringFunc(name, arg string) (jsonrules.StringFunc, error) {
	switch name {
	case config.FuncPrefix:
		return jsonrules.Prefix(arg), nil
	case config.FuncSuffix:
		return jsonrules.Suffix(arg), nil
	case config.FuncUpper:
		return jsonrules.Upper(), nil
	case config.FuncLower:
		return jsonrules.Lower(), nil
	default:
		return nil, fmt.Errorf("unknown body rewrite function %q", name)
	}
}

func bodyPredicate(name, arg string) (jsonrules.Predicate, error) {
	switch name {
	case config.FuncEmail:
		return jsonrules.EmailShape(), nil
	case config.FuncContains:
		return jsonrules.Contains(arg), nil
	case config.FuncNonEmpty:
		return jsonrules.NonEmpty(), nil
	default:
		return nil, fmt.Errorf("unknown predicate %q", name)
	}
}

package lua

import (
	"encoding/json"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// toGo converts a Lua value for logging and ledger payloads.
func toGo(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LString:
		return string(val)
	case lua.LNumber:
		return float64(val)
	case lua.LBool:
		return bool(val)
	case *lua.LTable:
		if n := val.MaxN(); n > 0 {
			arr := make([]any, n)
			for i := 1; i <= n; i++ {
				arr[i-1] = toGo(val.RawGetInt(i))
			}
			return arr
		}
		obj := make(map[string]any)
		val.ForEach(func(k, v lua.LValue) {
			obj[lua.LVAsString(k)] = toGo(v)
		})
		return obj
	case *lua.LNilType:
		return nil
	default:
		return v.String()
	}
}

// toLua converts a decoded JSON value.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		tbl := L.NewTable()
		for i, item := range val {
			tbl.RawSetInt(i+1, toLua(L, item))
		}
		return tbl
	case map[string]any:
		tbl := L.NewTable()
		for k, item := range val {
			tbl.RawSetString(k, toLua(L, item))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprintf("%v", v))
	}
}

// structToLua converts any JSON encodable value to a Lua table.
func structToLua(L *lua.LState, v any) (lua.LValue, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return lua.LNil, err
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return lua.LNil, err
	}
	return toLua(L, decoded), nil
}

// checkNumbers reads an array of numbers from argument n.
func checkNumbers(L *lua.LState, n int) []float64 {
	tbl := L.CheckTable(n)
	values := make([]float64, 0, tbl.MaxN())
	for i := 1; i <= tbl.MaxN(); i++ {
		num, ok := tbl.RawGetInt(i).(lua.LNumber)
		if !ok {
			L.ArgError(n, fmt.Sprintf("element %d is not a number", i))
			return nil
		}
		values = append(values, float64(num))
	}
	return values
}

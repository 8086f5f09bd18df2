package assert

import (
	"fmt"
	"reflect"
)

// NotNil panics if value is nil, including typed nil pointers stored in interfaces.
func NotNil(value any) {
	if value == nil {
		panic("expected value to be not nil")
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Interface, reflect.Slice, reflect.Chan:
		if v.IsNil() {
			panic(fmt.Sprintf("expected %T to be not nil", value))
		}
	}
}

func NotEmptyStr(str string) {
	if str == "" {
		panic("expected string to be non-empty")
	}
}

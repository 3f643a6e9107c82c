package quick

import (
	"fmt"
	"math"
	"math/rand"
	"reflect"
)

var sizes = [...]int{
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9,
	10, 11, 12, 13, 14, 15, 16, 17, 18, 19,
	20, 21, 22, 23, 24, 25, 26, 27, 28, 29,
	30, 31, 32, 33, 34, 35, 36, 37, 38, 39,
	99, 100, 101,
	127, 128, 129,
	255, 256, 257,
	1000, 1023, 1024, 1025,
	2000, 2095, 2048, 2049,
	4000, 4095, 4096, 4097,
}

// Check is inspired by the standard quick.Check package, but enhances the
// API and tests arrays of larger sizes than the maximum of 50 hardcoded in
// testing/quick.
//
// f must be a function taking a slice as only argument and returning a bool.
// Each size is tested three times: once with values drawn from the whole
// domain of the element type, then twice with values drawn from smaller pools
// so inputs contain repeated values.
func Check(f interface{}) error {
	v := reflect.ValueOf(f)
	r := rand.New(rand.NewSource(0))
	t := v.Type().In(0)

	if t.Kind() != reflect.Slice || !supported(t.Elem()) {
		panic("cannot run quick check on function with input of type " + t.String())
	}

	for _, n := range sizes {
		for i := 0; i < 3; i++ {
			in := makeArray(r, t, n, i)
			ok := v.Call([]reflect.Value{in})
			if !ok[0].Bool() {
				return fmt.Errorf("test #%d: failed on input of size %d: %#v\n", i+1, n, in.Interface())
			}
		}
	}
	return nil
}

func supported(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Array, reflect.Slice:
		return t.Elem().Kind() == reflect.Uint8
	default:
		return false
	}
}

func makeArray(r *rand.Rand, t reflect.Type, n, pass int) reflect.Value {
	v := reflect.MakeSlice(t, n, n)

	if pass == 0 {
		for i := 0; i < n; i++ {
			randomValue(r, v.Index(i))
		}
		return v
	}

	pool := reflect.MakeSlice(t, n/(4*pass)+1, n/(4*pass)+1)
	for i := 0; i < pool.Len(); i++ {
		randomValue(r, pool.Index(i))
	}
	for i := 0; i < n; i++ {
		v.Index(i).Set(pool.Index(r.Intn(pool.Len())))
	}
	return v
}

func randomValue(r *rand.Rand, v reflect.Value) {
	switch v.Kind() {
	case reflect.Bool:
		v.SetBool(r.Int()%2 != 0)

	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v.SetInt(int64(r.Uint64()))

	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v.SetUint(r.Uint64())

	case reflect.Float32, reflect.Float64:
		f := r.Float64()
		if v.Kind() == reflect.Float32 {
			f = float64(r.Float32())
		}
		// Special values are rare in the domain of floats but are the ones
		// that tests are most likely to mishandle.
		switch r.Intn(32) {
		case 0:
			f = 0
		case 1:
			f = math.Copysign(0, -1)
		case 2:
			f = math.NaN()
		case 3:
			f = math.Inf(+1)
		}
		v.SetFloat(f)

	case reflect.Array:
		b := make([]byte, v.Len())
		r.Read(b)
		reflect.Copy(v, reflect.ValueOf(b))

	case reflect.Slice:
		b := make([]byte, r.Intn(24))
		r.Read(b)
		v.SetBytes(b)
	}
}

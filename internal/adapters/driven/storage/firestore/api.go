package firestore

import (
	firestorev1 "google.golang.org/api/firestore/v1"
)

// apiFields converts record fields into generated client values.
//
// The generated types drop zero scalars (false, 0, "") on the wire unless
// they are listed in ForceSendFields, so those are marked explicitly.
func apiFields(fields map[string]any) (map[string]firestorev1.Value, error) {
	out := make(map[string]firestorev1.Value, len(fields))
	for k, v := range fields {
		w := encodeValue(v)
		var value firestorev1.Value
		if err := toWire(w, &value); err != nil {
			return nil, err
		}
		forceZero(&value, w)
		out[k] = value
	}
	return out, nil
}

func forceZero(v *firestorev1.Value, w wireValue) {
	switch {
	case w.BooleanValue != nil && !*w.BooleanValue:
		v.ForceSendFields = append(v.ForceSendFields, "BooleanValue")
	case w.IntegerValue != nil && *w.IntegerValue == "0":
		v.ForceSendFields = append(v.ForceSendFields, "IntegerValue")
	case w.DoubleValue != nil && *w.DoubleValue == 0:
		v.ForceSendFields = append(v.ForceSendFields, "DoubleValue")
	case w.StringValue != nil && *w.StringValue == "":
		v.ForceSendFields = append(v.ForceSendFields, "StringValue")
	case w.ArrayValue != nil && v.ArrayValue != nil:
		for i, item := range w.ArrayValue.Values {
			if i < len(v.ArrayValue.Values) && v.ArrayValue.Values[i] != nil {
				forceZero(v.ArrayValue.Values[i], item)
			}
		}
	case w.MapValue != nil && v.MapValue != nil:
		for k, item := range w.MapValue.Fields {
			field, ok := v.MapValue.Fields[k]
			if !ok {
				continue
			}
			forceZero(&field, item)
			v.MapValue.Fields[k] = field
		}
	}
}

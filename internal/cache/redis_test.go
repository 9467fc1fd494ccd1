package cache

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"MarketLedger/internal/model"

	"github.com/guregu/null/v6"
)

func TestKey(t *testing.T) {
	d := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	if got := Key("INFY", d); got != "ledger:row:INFY:2024-03-05" {
		t.Errorf("Key = %s", got)
	}
}

// Cached rows go through JSON; nulls and the embedded bar must survive it.
func TestRowJSONShape(t *testing.T) {
	d := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	row := model.StockRow{
		Bar: model.Bar{Symbol: "INFY", Exchange: "NSE", Date: d, Close: 1500.25, Volume: 10},
		Indicators: model.IndicatorRecord{
			Symbol: "INFY", Date: d,
			DMA10:  null.FloatFrom(1490.5),
			TScore: null.FloatFrom(61),
		},
	}
	data, err := json.Marshal(&row)
	if err != nil {
		t.Fatal(err)
	}
	var back model.StockRow
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back, row) {
		t.Errorf("json mismatch:\n got %+v\nwant %+v", back, row)
	}
}

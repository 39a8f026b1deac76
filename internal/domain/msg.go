package domain

import "encoding/json"

// NftApproveMsg is the payload a token owner attaches when granting a
// marketplace approval. The minimum price is the only required field.
type NftApproveMsg struct {
	MinPrice Balance `json:"min_price"`
}

// MarketApproveMsg is what the NFT ledger forwards to the marketplace in
// the approval notification: the owner's terms plus the token's provenance.
type MarketApproveMsg struct {
	MinPrice Balance `json:"min_price"`
	GateID   string  `json:"gate_id"`
	Creator  string  `json:"creator_id"`
}

// ParseNftApproveMsg decodes the msg argument of an approve call. The msg
// must be a JSON object carrying a positive min_price.
func ParseNftApproveMsg(msg string) (*NftApproveMsg, error) {
	if msg == "" {
		return nil, ErrMsgFormatMinPriceMissing()
	}

	var parsed NftApproveMsg
	if err := json.Unmarshal([]byte(msg), &parsed); err != nil {
		return nil, ErrMsgFormatNotRecognized(msg)
	}
	if parsed.MinPrice == "" {
		return nil, ErrMsgFormatMinPriceMissing()
	}
	if _, err := parsed.MinPrice.Parse(); err != nil {
		return nil, ErrMsgFormatNotRecognized(msg)
	}
	return &parsed, nil
}

// ParseMarketApproveMsg decodes the msg field of an approval notification
func ParseMarketApproveMsg(msg string) (*MarketApproveMsg, error) {
	var parsed MarketApproveMsg
	if err := json.Unmarshal([]byte(msg), &parsed); err != nil {
		return nil, ErrMsgFormatNotRecognized(msg)
	}
	if parsed.MinPrice == "" {
		return nil, ErrMsgFormatMinPriceMissing()
	}
	if _, err := parsed.MinPrice.Parse(); err != nil {
		return nil, ErrMsgFormatNotRecognized(msg)
	}
	return &parsed, nil
}

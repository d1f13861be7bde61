package main

import (
	"github.com/spf13/cobra"

	"github.com/congo-pay/paycard/internal/cards"
)

// addCardFlags registers the receipt fields shared by render and send.
func addCardFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("amount", "", "Paid amount as displayed on the card")
	f.String("time", "", "Payment time as displayed on the card")
	f.String("merchant", "", "Merchant name")
	f.String("merchant-phone", "", "Merchant phone")
	f.String("transaction-id", "", "Transaction id")
	f.String("payer-phone", "", "Phone of the paying customer")
	f.Bool("1bill", false, "Render the 1Bill variant")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("time")
	_ = cmd.MarkFlagRequired("merchant")
}

func cardRequest(cmd *cobra.Command) cards.CardRequest {
	f := cmd.Flags()
	str := func(name string) string {
		v, _ := f.GetString(name)
		return v
	}
	is1Bill, _ := f.GetBool("1bill")
	return cards.CardRequest{
		Amount:            str("amount"),
		TimeStr:           str("time"),
		MerchantName:      str("merchant"),
		MerchantPhone:     str("merchant-phone"),
		TransactionID:     str("transaction-id"),
		ProductOwnerPhone: str("payer-phone"),
		Is1Bill:           is1Bill,
	}
}

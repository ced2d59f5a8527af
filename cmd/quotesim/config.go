package main

type config struct {
	BaseURL  string `mapstructure:"base_url"`
	Secret   string `mapstructure:"secret"`
	Zipcode  string `mapstructure:"zipcode"`
	Amount   string `mapstructure:"amount"`
	Document string `mapstructure:"document"`
	Interval string `mapstructure:"interval"`
	Items    []item `mapstructure:"items"`
}

type item struct {
	Weight   float64 `mapstructure:"weight"`
	Quantity int     `mapstructure:"quantity"`
	Length   float64 `mapstructure:"length"`
	Width    float64 `mapstructure:"width"`
	Height   float64 `mapstructure:"height"`
}

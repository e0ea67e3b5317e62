package discord

// CreateChannelParams describes a new guild text channel.
type CreateChannelParams struct {
	Name       string
	Topic      string
	Parent     Snowflake
	Overwrites []Overwrite
}

// EditChannelParams describes a partial channel edit. Nil fields are left
// unchanged.
type EditChannelParams struct {
	Name   *string
	Topic  *string
	Parent *Snowflake
}

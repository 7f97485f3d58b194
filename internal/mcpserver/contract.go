package mcpserver

// LayoutContract describes the application layout the compiler reads.
// LLM consumers should follow it when adding models, mixins or boot scripts.
const LayoutContract = `# Application Layout Contract

The boot plan compiler reads an application root laid out as follows.
All paths are relative to the root unless noted.

## Structure

` + "```" + `text
config.json                 # app settings (host, port, restApiRoot, ...)
config.<env>.json           # OPTIONAL – per-environment overlay
datasources.json            # datasource name -> connector settings
model-config.json           # model name -> runtime config (dataSource, public, ...)
models/                     # model definitions: <name>.json (+ <name>.js)
mixins/                     # mixin scripts: <name>.js (+ <name>.json metadata)
boot/                       # boot scripts, run in name order
boot/<env>/                 # OPTIONAL – boot scripts for one environment
` + "```" + `

## Rules

1. **Configuration files** are JSON objects. Every ` + "`" + `<stem>.json` + "`" + ` is overlaid by
   ` + "`" + `<stem>.local.json` + "`" + ` and then ` + "`" + `<stem>.<env>.json` + "`" + ` when they exist.
   The environment defaults to ` + "`" + `development` + "`" + ` (variable ` + "`" + `APP_ENV` + "`" + `).
2. **Only configured models are booted.** A model appears in the plan when it has an
   entry in ` + "`" + `model-config.json` + "`" + `, or when a booted model inherits from it.
3. **Model definitions** are ` + "`" + `*.json` + "`" + ` files with a ` + "`" + `name` + "`" + ` field (inferred
   from the file name when absent: ` + "`" + `vip-customer.json` + "`" + ` defines ` + "`" + `VipCustomer` + "`" + `).
   The parent model is named by ` + "`" + `base` + "`" + ` or ` + "`" + `options.base` + "`" + `.
   A sibling script with the same stem customizes the model.
4. **Inheritance must be acyclic.** Bases always boot before the models derived from them.
5. **Mixins** are referenced from a model definition's ` + "`" + `mixins` + "`" + ` object. Unreferenced
   mixins in ` + "`" + `mixins/` + "`" + ` are left out of the plan. Mixin names are derived from the file
   name (` + "`" + `time-stamp.js` + "`" + ` becomes ` + "`" + `TimeStamp` + "`" + ` by default).
6. **Boot scripts** run one after another in case-insensitive name order, then the
   scripts of ` + "`" + `boot/<env>/` + "`" + `.
7. **Ignored files**: names starting with ` + "`" + `_` + "`" + `, ` + "`" + `index.*` + "`" + ` entry points and files
   with unknown extensions are never picked up.

## Example

` + "```" + `json
// model-config.json
{
  "VipCustomer": { "dataSource": "db", "public": true }
}

// models/vip-customer.json
{
  "name": "VipCustomer",
  "base": "Customer",
  "mixins": { "TimeStamp": { "required": true } },
  "properties": { "level": { "type": "number" } }
}
` + "```" + `

Compiling this layout boots ` + "`" + `Customer` + "`" + ` (when ` + "`" + `models/customer.json` + "`" + ` exists)
before ` + "`" + `VipCustomer` + "`" + `, and includes ` + "`" + `mixins/time-stamp.js` + "`" + `.
`
